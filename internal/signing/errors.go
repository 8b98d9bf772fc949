package signing

import "github.com/openpredict/tradegate/pkg/types"

func newConfigError(venue, missing string) error {
	return &types.ConfigurationError{Venue: venue, Missing: missing}
}

func newSignatureError(reason string) error {
	return &types.SignatureError{Reason: reason}
}
