package movement

import (
	"math/rand"
	"testing"

	"github.com/wfunc/gridserver/models"
)

var allDirections = []models.Direction{models.DirUp, models.DirDown, models.DirLeft, models.DirRight}

func TestMove_NeverLeavesGrid(t *testing.T) {
	for x := 0; x < models.GridSize; x++ {
		for y := 0; y < models.GridSize; y++ {
			for _, d := range allDirections {
				got := Move(models.PlayerState{X: x, Y: y}, d)
				if !got.InBounds() {
					t.Fatalf("Move(%d,%d,%s) = (%d,%d), out of bounds", x, y, d, got.X, got.Y)
				}
				dx, dy := got.X-x, got.Y-y
				if dx*dx+dy*dy > 1 {
					t.Fatalf("Move(%d,%d,%s) jumped to (%d,%d)", x, y, d, got.X, got.Y)
				}
			}
		}
	}
}

func TestMove_ClampsAtCorners(t *testing.T) {
	origin := models.PlayerState{X: 0, Y: 0, Kind: models.KindHuman}
	if got := Move(origin, models.DirLeft); got != origin {
		t.Errorf("expected left at origin to stay put, got %+v", got)
	}
	if got := Move(origin, models.DirUp); got != origin {
		t.Errorf("expected up at origin to stay put, got %+v", got)
	}

	corner := models.PlayerState{X: 9, Y: 9, Kind: models.KindAI}
	if got := Move(corner, models.DirRight); got != corner {
		t.Errorf("expected right at far corner to stay put, got %+v", got)
	}
	if got := Move(corner, models.DirDown); got != corner {
		t.Errorf("expected down at far corner to stay put, got %+v", got)
	}
}

func TestMove_Steps(t *testing.T) {
	start := models.PlayerState{X: 5, Y: 5}
	cases := map[models.Direction]models.PlayerState{
		models.DirUp:    {X: 5, Y: 4},
		models.DirDown:  {X: 5, Y: 6},
		models.DirLeft:  {X: 4, Y: 5},
		models.DirRight: {X: 6, Y: 5},
	}
	for d, want := range cases {
		if got := Move(start, d); got != want {
			t.Errorf("Move(%s) = %+v, want %+v", d, got, want)
		}
	}
}

func TestMove_UnknownDirectionIsNoop(t *testing.T) {
	start := models.PlayerState{X: 3, Y: 7, Kind: models.KindHuman}
	for _, d := range []models.Direction{"", "north", "UP"} {
		if got := Move(start, d); got != start {
			t.Errorf("Move(%q) changed state to %+v", d, got)
		}
	}
}

func TestParseDirection(t *testing.T) {
	for _, d := range allDirections {
		got, ok := ParseDirection(string(d))
		if !ok || got != d {
			t.Errorf("ParseDirection(%q) = %q, %v", d, got, ok)
		}
	}
	for _, raw := range []string{"", "Up", "diagonal", " left"} {
		if _, ok := ParseDirection(raw); ok {
			t.Errorf("ParseDirection(%q) should be rejected", raw)
		}
	}
}

func TestRandomPosition_InBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		p := RandomPosition(rng, models.KindAI)
		if !p.InBounds() {
			t.Fatalf("random position out of bounds: %+v", p)
		}
		if p.Kind != models.KindAI {
			t.Fatalf("expected kind to be carried through, got %q", p.Kind)
		}
	}
}
