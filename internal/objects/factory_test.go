package objects

import (
	"testing"

	"github.com/AaronLay10/SceneEngine/internal/config"
)

func TestFactoryResolvesEachTagOnce(t *testing.T) {
	f, err := NewFactory(DefaultRegistrations(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, ok := f.Resolve("door"); !ok {
			t.Fatal("door not registered")
		}
	}
	f.Resolve("unknown")
	f.Resolve("unknown")
	if f.Lookups() != 2 {
		t.Errorf("expected 2 uncached lookups, got %d", f.Lookups())
	}
}

func TestFactoryEditionAliases(t *testing.T) {
	p := config.ProfileFor(config.EditionExpansion)
	f, err := NewFactory(DefaultRegistrations(), p.TypeAliases)
	if err != nil {
		t.Fatal(err)
	}
	lift, ok := f.Resolve("lift")
	if !ok {
		t.Fatal("lift alias not resolved")
	}
	elev, _ := f.Resolve("elevator")
	if lift != elev {
		t.Error("alias should resolve to the elevator registration")
	}

	classic, _ := NewFactory(DefaultRegistrations(), config.ProfileFor(config.EditionClassic).TypeAliases)
	if _, ok := classic.Resolve("lift"); ok {
		t.Error("classic edition should not know lift")
	}
}

func TestWaterSurfaceVariantsShareRegistration(t *testing.T) {
	f, _ := NewFactory(DefaultRegistrations(), nil)
	a, _ := f.Resolve("water_surface")
	b, _ := f.Resolve("water_surface_v2")
	if a == nil || a != b {
		t.Fatal("water surface variants should be merged")
	}
}

func TestFactoryRejectsDuplicateTag(t *testing.T) {
	regs := []Registration{
		{Tags: []string{"door"}, New: newDoor},
		{Tags: []string{"door"}, New: newDoor},
	}
	if _, err := NewFactory(regs, nil); err == nil {
		t.Fatal("expected duplicate tag error")
	}
	if _, err := NewFactory([]Registration{{Tags: []string{"x"}}}, nil); err == nil {
		t.Fatal("expected missing constructor error")
	}
}
