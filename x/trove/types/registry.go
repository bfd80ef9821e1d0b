package types

import "context"

var _ ConfigRegistry = StaticRegistry{}

// StaticRegistry is a ConfigRegistry with authorities fixed at construction
type StaticRegistry struct {
	Admin  string
	Minter string
}

// NewStaticRegistry creates a StaticRegistry
func NewStaticRegistry(admin, minter string) StaticRegistry {
	return StaticRegistry{Admin: admin, Minter: minter}
}

func (r StaticRegistry) AdminAuthority(context.Context) string { return r.Admin }

func (r StaticRegistry) MintAuthority(context.Context) string { return r.Minter }
