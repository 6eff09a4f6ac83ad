// Package consensus maps networks and block heights to Zcash consensus
// parameters: branch IDs for signature replay protection (ZIP 252 and
// successors), SLIP 44 coin types, and address prefixes.
package consensus

import "fmt"

// Network selects the chain parameters used for address encoding and
// branch ID lookup.
type Network uint8

const (
	MainNetwork Network = iota
	TestNetwork
)

func (n Network) String() string {
	switch n {
	case MainNetwork:
		return "mainnet"
	case TestNetwork:
		return "testnet"
	default:
		return fmt.Sprintf("network(%d)", uint8(n))
	}
}

// CoinType returns the SLIP 44 coin type recorded in PCZT globals.
func (n Network) CoinType() uint32 {
	if n == MainNetwork {
		return 133
	}
	return 1
}

// Consensus branch IDs for each network upgrade.
const (
	BranchOverwinter uint32 = 0x5BA81B19
	BranchSapling    uint32 = 0x76B809BB
	BranchBlossom    uint32 = 0x2BB40E60
	BranchHeartwood  uint32 = 0xF5B9230B
	BranchCanopy     uint32 = 0xE9FF75A6
	BranchNU5        uint32 = 0xC2D6D0B4
	BranchNU6        uint32 = 0xC8E71055
)

type upgrade struct {
	height   uint32
	branchID uint32
}

// Activation heights per network, ascending.
var (
	mainnetUpgrades = []upgrade{
		{347_500, BranchOverwinter},
		{419_200, BranchSapling},
		{653_600, BranchBlossom},
		{903_000, BranchHeartwood},
		{1_046_400, BranchCanopy},
		{1_687_104, BranchNU5},
		{2_726_400, BranchNU6},
	}
	testnetUpgrades = []upgrade{
		{207_500, BranchOverwinter},
		{280_000, BranchSapling},
		{584_000, BranchBlossom},
		{903_800, BranchHeartwood},
		{1_028_500, BranchCanopy},
		{1_842_420, BranchNU5},
		{2_976_000, BranchNU6},
	}
)

func (n Network) upgrades() []upgrade {
	if n == MainNetwork {
		return mainnetUpgrades
	}
	return testnetUpgrades
}

// BranchID returns the consensus branch ID in effect at the given height.
// Heights before Overwinter have no branch ID and return an error.
func (n Network) BranchID(height uint32) (uint32, error) {
	ups := n.upgrades()
	branch := uint32(0)
	for _, u := range ups {
		if height >= u.height {
			branch = u.branchID
		}
	}
	if branch == 0 {
		return 0, fmt.Errorf("height %d predates Overwinter on %s", height, n)
	}
	return branch, nil
}

// NU5ActivationHeight returns the height at which v5 transactions became
// valid on this network.
func (n Network) NU5ActivationHeight() uint32 {
	for _, u := range n.upgrades() {
		if u.branchID == BranchNU5 {
			return u.height
		}
	}
	return 0
}

// LatestBranchID returns the branch ID of the most recent activated
// upgrade, used when no target height has been chosen.
func (n Network) LatestBranchID() uint32 {
	ups := n.upgrades()
	return ups[len(ups)-1].branchID
}

// SupportsV5 reports whether v5 transactions are valid at the given height.
func (n Network) SupportsV5(height uint32) bool {
	return height >= n.NU5ActivationHeight()
}
