package cli

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cosmos/cosmos-sdk/client"
	"google.golang.org/protobuf/encoding/protowire"
)

// kvPair is one entry of a store subspace query
type kvPair struct {
	Key   []byte
	Value []byte
}

// querySubspace returns every key under prefix in the named module store
func querySubspace(clientCtx client.Context, storeName string, prefix []byte) ([]kvPair, error) {
	resp, err := clientCtx.QueryABCI(abci.RequestQuery{
		Path:   fmt.Sprintf("/store/%s/subspace", storeName),
		Data:   prefix,
		Height: clientCtx.Height,
	})
	if err != nil {
		return nil, err
	}
	return decodePairs(resp.Value)
}

// decodePairs reads the store's subspace response: a repeated Pair message
// at field 1, each Pair carrying key at field 1 and value at field 2.
func decodePairs(bz []byte) ([]kvPair, error) {
	var pairs []kvPair
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return nil, fmt.Errorf("decode pairs: %w", protowire.ParseError(n))
		}
		bz = bz[n:]
		if num != 1 || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, bz)
			if n < 0 {
				return nil, fmt.Errorf("decode pairs: %w", protowire.ParseError(n))
			}
			bz = bz[n:]
			continue
		}
		msg, n := protowire.ConsumeBytes(bz)
		if n < 0 {
			return nil, fmt.Errorf("decode pairs: %w", protowire.ParseError(n))
		}
		bz = bz[n:]
		pair, err := decodePair(msg)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

func decodePair(bz []byte) (kvPair, error) {
	var pair kvPair
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return kvPair{}, fmt.Errorf("decode pair: %w", protowire.ParseError(n))
		}
		bz = bz[n:]
		if typ != protowire.BytesType || (num != 1 && num != 2) {
			n = protowire.ConsumeFieldValue(num, typ, bz)
			if n < 0 {
				return kvPair{}, fmt.Errorf("decode pair: %w", protowire.ParseError(n))
			}
			bz = bz[n:]
			continue
		}
		field, n := protowire.ConsumeBytes(bz)
		if n < 0 {
			return kvPair{}, fmt.Errorf("decode pair: %w", protowire.ParseError(n))
		}
		bz = bz[n:]
		if num == 1 {
			pair.Key = append([]byte(nil), field...)
		} else {
			pair.Value = append([]byte(nil), field...)
		}
	}
	return pair, nil
}
