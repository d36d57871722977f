// Package seed holds the fixed Madison bar list and the manager accounts
// that own them, and applies both to any repository.Storage.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
)

// Manager is a seeded account; BarIndex is the 1-based position of its bar in Bars.
type Manager struct {
	Username string
	Password string
	BarIndex int
}

var Bars = []entity.NewBar{
	{
		Name:      "State Street Brats",
		Capacity:  200,
		Address:   "603 State St, Madison, WI 53703",
		Latitude:  "43.074673",
		Longitude: "-89.395989",
	},
	{
		Name:      "Whiskey Jacks",
		Capacity:  150,
		Address:   "552 State St, Madison, WI 53703",
		Latitude:  "43.0748",
		Longitude: "-89.3947",
	},
	{
		Name:      "The KK",
		Capacity:  180,
		Address:   "124 W Gorham St, Madison, WI 53703",
		Latitude:  "43.075631",
		Longitude: "-89.397142",
	},
	{
		Name:      "Chasers",
		Capacity:  120,
		Address:   "319 W Gorham St, Madison, WI 53703",
		Latitude:  "43.074090",
		Longitude: "-89.393226",
	},
}

var Managers = []Manager{
	{Username: "brats_manager", Password: "bratspass123", BarIndex: 1},
	{Username: "whiskey_manager", Password: "whiskeypass123", BarIndex: 2},
	{Username: "kk_manager", Password: "kkpass123", BarIndex: 3},
	{Username: "chasers_manager", Password: "chaserspass123", BarIndex: 4},
}

// HashFunc turns a plaintext password into the stored credential.
type HashFunc func(plain string) (string, error)

// Result reports what Apply created.
type Result struct {
	BarsCreated  int
	UsersCreated int
}

// Apply seeds bars when the store has none, then creates any missing
// manager accounts. Running it twice is a no-op.
func Apply(ctx context.Context, store repository.Storage, hash HashFunc) (Result, error) {
	var res Result

	bars, err := store.GetAllBars(ctx)
	if err != nil {
		return res, fmt.Errorf("list bars: %w", err)
	}
	if len(bars) == 0 {
		for _, nb := range Bars {
			b, err := store.CreateBar(ctx, nb)
			if err != nil {
				return res, fmt.Errorf("create bar %q: %w", nb.Name, err)
			}
			bars = append(bars, *b)
			res.BarsCreated++
		}
	}

	for _, m := range Managers {
		if _, err := store.GetUserByUsername(ctx, m.Username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return res, fmt.Errorf("lookup %s: %w", m.Username, err)
		}
		hashed, err := hash(m.Password)
		if err != nil {
			return res, fmt.Errorf("hash password for %s: %w", m.Username, err)
		}
		var barID *int64
		if m.BarIndex >= 1 && m.BarIndex <= len(bars) {
			id := bars[m.BarIndex-1].ID
			barID = &id
		}
		if _, err := store.CreateUser(ctx, entity.NewUser{Username: m.Username, Password: hashed, BarID: barID}); err != nil {
			return res, fmt.Errorf("create user %s: %w", m.Username, err)
		}
		res.UsersCreated++
	}
	return res, nil
}
