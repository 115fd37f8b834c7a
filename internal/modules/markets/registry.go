package markets

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

//go:embed markets.json
var builtinMarketsJSON []byte

// CustomMarketLister lists user-added markets. *CustomRepository satisfies it.
type CustomMarketLister interface {
	List() ([]CustomMarket, error)
}

type marketEntry struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	ProgramID  string `json:"programId"`
	Deprecated bool   `json:"deprecated"`
}

// Registry supplies the ordered list of markets to warm: custom markets
// first, then non-deprecated built-ins, each address at most once.
type Registry struct {
	builtin []Descriptor
	custom  CustomMarketLister
	log     zerolog.Logger
}

// NewRegistry loads built-in markets from path, or the embedded list when path is empty
func NewRegistry(path string, custom CustomMarketLister, log zerolog.Logger) (*Registry, error) {
	data := builtinMarketsJSON
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read markets file: %w", err)
		}
	}

	builtin, err := ParseDescriptors(data)
	if err != nil {
		return nil, err
	}

	return &Registry{
		builtin: builtin,
		custom:  custom,
		log:     log.With().Str("component", "market_registry").Logger(),
	}, nil
}

// ParseDescriptors decodes a JSON market list
func ParseDescriptors(data []byte) ([]Descriptor, error) {
	var entries []marketEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse market list: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(entries))
	for i, e := range entries {
		address, err := solana.PublicKeyFromBase58(e.Address)
		if err != nil {
			return nil, fmt.Errorf("market %d (%s): invalid address: %w", i, e.Name, err)
		}
		programID, err := solana.PublicKeyFromBase58(e.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("market %d (%s): invalid program id: %w", i, e.Name, err)
		}
		descriptors = append(descriptors, Descriptor{
			Name:       e.Name,
			Address:    address,
			ProgramID:  programID,
			Deprecated: e.Deprecated,
		})
	}
	return descriptors, nil
}

// Builtin returns every built-in market, deprecated ones included
func (r *Registry) Builtin() []Descriptor {
	out := make([]Descriptor, len(r.builtin))
	copy(out, r.builtin)
	return out
}

// Descriptors returns the markets to warm in provider order.
// A failing custom market source is logged and skipped.
func (r *Registry) Descriptors() []Descriptor {
	seen := make(map[solana.PublicKey]bool)
	var out []Descriptor

	for _, d := range r.customDescriptors() {
		if seen[d.Address] {
			continue
		}
		seen[d.Address] = true
		out = append(out, d)
	}

	for _, d := range r.builtin {
		if d.Deprecated || seen[d.Address] {
			continue
		}
		seen[d.Address] = true
		out = append(out, d)
	}

	return out
}

func (r *Registry) customDescriptors() []Descriptor {
	if r.custom == nil {
		return nil
	}

	custom, err := r.custom.List()
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to list custom markets")
		return nil
	}

	out := make([]Descriptor, 0, len(custom))
	for _, m := range custom {
		address, err := solana.PublicKeyFromBase58(m.Address)
		if err != nil {
			r.log.Warn().Err(err).Str("address", m.Address).Msg("Skipping custom market with invalid address")
			continue
		}
		programID, err := solana.PublicKeyFromBase58(m.ProgramID)
		if err != nil {
			r.log.Warn().Err(err).Str("address", m.Address).Msg("Skipping custom market with invalid program id")
			continue
		}
		out = append(out, Descriptor{
			Name:      m.Name,
			Address:   address,
			ProgramID: programID,
			Custom:    true,
		})
	}
	return out
}
