// Package pczt implements the Partially Constructed Zcash Transaction
// format (ZIP 374).
//
// A PCZT carries a v5 transaction through its construction roles
// (Creator, Constructor, IO Finalizer, Prover, Signer, Combiner, Spend
// Finalizer, Transaction Extractor). Unlike the final wire format it
// keeps per-record metadata needed for signing and proving, modelled on
// Bitcoin's PSBT maps.
//
// See: https://zips.z.cash/zip-0374
package pczt

// PCZT is the in-memory form of a ZIP 374 artifact (format version 1).
type PCZT struct {
	Global      Global
	Transparent TransparentBundle
	Sapling     SaplingBundle
	Orchard     OrchardBundle
}

// Global holds transaction-wide fields every role must agree on.
type Global struct {
	TxVersion         uint32  // always 5
	VersionGroupID    uint32  // 0x26A7270A for v5
	ConsensusBranchID uint32
	FallbackLockTime  *uint32 // nLockTime when no input requires one; nil means 0
	ExpiryHeight      uint32  // ZIP 203
	CoinType          uint32  // SLIP 44: 133 mainnet, 1 testnet
	TxModifiable      uint8
	Proprietary       map[string][]byte
}

// TxModifiable bitfield. Signers consult these to know what later roles
// may still change underneath their signatures.
const (
	FlagTransparentInputsModifiable  uint8 = 1 << 0
	FlagTransparentOutputsModifiable uint8 = 1 << 1
	FlagHasSighashSingle             uint8 = 1 << 2
	FlagShieldedModifiable           uint8 = 1 << 7
)

// TransparentBundle lists the coins being spent and created.
type TransparentBundle struct {
	Inputs  []TransparentInput
	Outputs []TransparentOutput
}

// TransparentInput is a UTXO being spent plus the metadata the remaining
// roles need. The Constructor fills the prevout fields, Signers populate
// PartialSignatures, and the Spend Finalizer collapses everything into
// ScriptSig.
type TransparentInput struct {
	PrevoutTxID  [32]byte
	PrevoutIndex uint32
	Value        uint64 // zatoshis
	ScriptPubKey []byte
	SighashType  uint8 // defaults to SIGHASH_ALL

	Sequence               *uint32 // nil means 0xffffffff
	RequiredTimeLockTime   *uint32 // nLockTime >= 500000000 required by this input
	RequiredHeightLockTime *uint32 // nLockTime < 500000000 required by this input
	ScriptSig              []byte  // set by the Spend Finalizer
	RedeemScript           []byte  // P2SH only
	PartialSignatures      map[[33]byte][]byte // pubkey -> DER signature || sighash byte
	Bip32Derivation        map[[33]byte]Zip32Derivation

	// Preimage maps for hash-locked scripts.
	Ripemd160Preimages map[[20]byte][]byte
	Sha256Preimages    map[[32]byte][]byte
	Hash160Preimages   map[[20]byte][]byte
	Hash256Preimages   map[[32]byte][]byte
	Proprietary        map[string][]byte
}

// TransparentOutput is a coin being created.
type TransparentOutput struct {
	Value           uint64
	ScriptPubKey    []byte
	RedeemScript    []byte
	Bip32Derivation map[[33]byte]Zip32Derivation
	UserAddress     *string // human-readable form for signer review
	Proprietary     map[string][]byte
}

// SaplingBundle is carried for wire compatibility but always empty;
// Sapling spends and outputs are unsupported.
type SaplingBundle struct {
	Spends   []interface{}
	Outputs  []interface{}
	ValueSum int64
	Anchor   [32]byte
	Bsk      *[32]byte
}

// OrchardBundle holds the shielded half of the transaction. Every action
// pairs one spend with one output; transparent-funded transactions use
// dummy spends.
type OrchardBundle struct {
	Actions    []OrchardAction
	Flags      uint8
	ValueSum   ValueBalance // net flow out of the Orchard pool
	Anchor     [32]byte
	ZkProof    []byte    // set by the Prover
	Bsk        *[32]byte // binding signature key, cleared before extraction
	BindingSig *[64]byte // set by the Transaction Extractor
}

// OrchardAction is a combined spend and output with a shared net value
// commitment.
type OrchardAction struct {
	CvNet  [32]byte
	Spend  OrchardSpend
	Output OrchardOutput
	Rcv    *[32]byte // value commitment randomness
}

// OrchardSpend is the note being consumed. For transparent-to-shielded
// transactions this is a dummy: zero value, synthetic key material, no
// witness.
type OrchardSpend struct {
	Nullifier    [32]byte
	Rk           [32]byte
	SpendAuthSig *[64]byte

	Recipient       *[43]byte
	Value           *uint64
	Rho             *[32]byte
	Rseed           *[32]byte
	Fvk             *[96]byte
	Witness         *MerkleWitness
	Alpha           *[32]byte
	Zip32Derivation *Zip32Derivation
	DummySk         *[32]byte // cleared by the IO Finalizer
	Proprietary     map[string][]byte
}

// OrchardOutput is the note being created. Recipient, Value, and Rseed
// are kept until proving; the ciphertexts are what reach the chain.
type OrchardOutput struct {
	Cmx           [32]byte
	EphemeralKey  [32]byte
	EncCiphertext []byte // 580 bytes once encrypted
	OutCiphertext []byte // 80 bytes once encrypted

	Recipient *[43]byte
	Value     *uint64
	Rseed     *[32]byte

	Ock             *[32]byte
	Zip32Derivation *Zip32Derivation
	UserAddress     *string
	Proprietary     map[string][]byte
}

// ValueBalance is a sign-and-magnitude amount. Positive means value
// entering the Orchard pool.
type ValueBalance struct {
	Magnitude  uint64
	IsNegative bool
}

// MerkleWitness authenticates a note commitment in the Orchard tree
// (depth 32). Dummy spends carry none.
type MerkleWitness struct {
	Position uint32
	Path     [32][32]byte
}

// Zip32Derivation is an HD derivation path (ZIP 32). Indices >= 2^31 are
// hardened.
type Zip32Derivation struct {
	SeedFingerprint [32]byte
	DerivationPath  []uint32
}

// v5 transaction constants.
const (
	V5TxVersion      uint32 = 5
	V5VersionGroupID uint32 = 0x26A7270A
	MainNetCoinType  uint32 = 133
	TestNetCoinType  uint32 = 1
)

// SIGHASH type flags (ZIP 244 transparent semantics).
const (
	SighashAll             uint8 = 0x01
	SighashNone            uint8 = 0x02
	SighashSingle          uint8 = 0x03
	SighashAnyoneCanPay    uint8 = 0x80
	SighashAllAnyoneCanPay uint8 = SighashAll | SighashAnyoneCanPay
)

// OrchardFlagsEnabled sets both the spends-enabled and outputs-enabled
// bits.
const OrchardFlagsEnabled uint8 = 0b00000011
