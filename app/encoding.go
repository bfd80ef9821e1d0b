package app

import (
	"cosmossdk.io/core/address"
	"cosmossdk.io/x/tx/signing"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/codec"
	addresscodec "github.com/cosmos/cosmos-sdk/codec/address"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/std"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtx "github.com/cosmos/cosmos-sdk/x/auth/tx"
	"github.com/cosmos/gogoproto/proto"
)

// EncodingConfig bundles the codecs shared by the app, its keepers and the CLI
type EncodingConfig struct {
	InterfaceRegistry codectypes.InterfaceRegistry
	Codec             codec.Codec
	TxConfig          client.TxConfig
	Amino             *codec.LegacyAmino

	// AddressCodec encodes account addresses, including trove owners and
	// pool depositors
	AddressCodec          address.Codec
	ValidatorAddressCodec address.Codec
}

// MakeEncodingConfig builds the codecs for the current bech32 prefixes and
// registers the SDK and module types on them
func MakeEncodingConfig() EncodingConfig {
	cfg := sdk.GetConfig()
	accCodec := addresscodec.NewBech32Codec(cfg.GetBech32AccountAddrPrefix())
	valCodec := addresscodec.NewBech32Codec(cfg.GetBech32ValidatorAddrPrefix())
	signingOptions := signing.Options{
		AddressCodec:          accCodec,
		ValidatorAddressCodec: valCodec,
	}

	registry, err := codectypes.NewInterfaceRegistryWithOptions(codectypes.InterfaceRegistryOptions{
		ProtoFiles:     proto.HybridResolver,
		SigningOptions: signingOptions,
	})
	if err != nil {
		panic(err)
	}
	amino := codec.NewLegacyAmino()
	std.RegisterLegacyAminoCodec(amino)
	std.RegisterInterfaces(registry)
	ModuleBasics.RegisterLegacyAminoCodec(amino)
	ModuleBasics.RegisterInterfaces(registry)

	cdc := codec.NewProtoCodec(registry)
	txConfig, err := authtx.NewTxConfigWithOptions(cdc, authtx.ConfigOptions{
		EnabledSignModes: authtx.DefaultSignModes,
		SigningOptions:   &signingOptions,
	})
	if err != nil {
		panic(err)
	}

	return EncodingConfig{
		InterfaceRegistry:     registry,
		Codec:                 cdc,
		TxConfig:              txConfig,
		Amino:                 amino,
		AddressCodec:          accCodec,
		ValidatorAddressCodec: valCodec,
	}
}
