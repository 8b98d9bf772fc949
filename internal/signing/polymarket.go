package signing

import (
	"crypto/ecdsa"
	crand "crypto/rand"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"

	"github.com/openpredict/tradegate/pkg/types"
)

const polygonChainID = 137

var zeroAddress = "0x0000000000000000000000000000000000000000"

// OrderSigner produces EIP-712 signed Polymarket CLOB orders. The
// signer key is the user's EOA; the maker is the proxy wallet, so the
// two addresses differ whenever a proxy is in use and the signature
// type discriminant records which deployment scheme verifies the
// signature on-chain.
type OrderSigner struct {
	privateKey   *ecdsa.PrivateKey
	address      string // EOA address (signer)
	proxyAddress string // proxy address (maker/funder)
	sigType      model.SignatureType
	orderBuilder builder.ExchangeOrderBuilder
}

// OrderParams describes one order to sign. Amounts are raw 6-decimal
// integer strings, already scaled by the caller.
type OrderParams struct {
	TokenID     string
	MakerAmount string
	TakerAmount string
	Side        model.Side
	Expiration  string // unix seconds as decimal string, "0" for none
	NegRisk     bool
}

// NewOrderSigner parses the hex private key and prepares the order
// builder. Malformed key material is a ConfigurationError.
func NewOrderSigner(privateKeyHex, proxyAddress string, sigType int) (*OrderSigner, error) {
	if privateKeyHex == "" {
		return nil, newConfigError("polymarket", "POLYMARKET_PRIVATE_KEY is empty")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, newConfigError("polymarket", "cannot parse ECDSA private key")
	}

	publicKey, _ := privateKey.Public().(*ecdsa.PublicKey)
	address := crypto.PubkeyToAddress(*publicKey).Hex()

	chainID := big.NewInt(polygonChainID)
	orderBuilder := builder.NewExchangeOrderBuilderImpl(chainID, RandomSalt)

	return &OrderSigner{
		privateKey:   privateKey,
		address:      address,
		proxyAddress: proxyAddress,
		sigType:      model.SignatureType(sigType),
		orderBuilder: orderBuilder,
	}, nil
}

// SignOrder builds and signs a single order. The verifying-contract
// domain follows the instrument's risk category: standard instruments
// verify against the CTF Exchange, negative-risk instruments against
// the Neg Risk CTF Exchange. Swapping them yields a well-formed but
// rejected signature.
func (s *OrderSigner) SignOrder(p *OrderParams) (*model.SignedOrder, error) {
	if p.TokenID == "" {
		return nil, newSignatureError("token id is required")
	}

	if p.MakerAmount == "" || p.TakerAmount == "" {
		return nil, newSignatureError("maker and taker amounts are required")
	}

	maker := s.address
	if s.proxyAddress != "" {
		maker = s.proxyAddress
	}

	expiration := p.Expiration
	if expiration == "" {
		expiration = "0"
	}

	orderData := &model.OrderData{
		Maker:         maker,
		Taker:         zeroAddress,
		TokenId:       p.TokenID,
		MakerAmount:   p.MakerAmount,
		TakerAmount:   p.TakerAmount,
		Side:          p.Side,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        s.address,
		Expiration:    expiration,
		SignatureType: s.sigType,
	}

	contract := model.CTFExchange
	if p.NegRisk {
		contract = model.NegRiskCTFExchange
	}

	signed, err := s.orderBuilder.BuildSignedOrder(s.privateKey, orderData, contract)
	if err != nil {
		return nil, newSignatureError("build signed order: " + err.Error())
	}

	orderSignaturesTotal.WithLabelValues(string(riskLabel(p.NegRisk))).Inc()

	return signed, nil
}

// Address returns the EOA address derived from the signing key.
func (s *OrderSigner) Address() string {
	return s.address
}

// MakerAddress returns the address used as order maker: the proxy
// wallet when configured, otherwise the EOA itself.
func (s *OrderSigner) MakerAddress() string {
	if s.proxyAddress != "" {
		return s.proxyAddress
	}

	return s.address
}

// SignatureType returns the configured signature-type discriminant.
func (s *OrderSigner) SignatureType() model.SignatureType {
	return s.sigType
}

// RandomSalt draws an order salt from crypto/rand. Salts are never
// reused: a signed order is immutable, and any change requires a fresh
// salt and a fresh signature.
func RandomSalt() int64 {
	n, err := crand.Int(crand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken; there is no meaningful fallback.
		panic("signing: entropy source unavailable: " + err.Error())
	}

	return n.Int64()
}

func riskLabel(negRisk bool) types.RiskCategory {
	if negRisk {
		return types.RiskNegativeRisk
	}

	return types.RiskStandard
}
