package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	wantRotations := map[Kind]int{KindI: 2, KindO: 1, KindT: 4, KindS: 2, KindZ: 2, KindJ: 4, KindL: 4}

	for _, k := range AllKinds {
		t.Run(k.String(), func(t *testing.T) {
			assert.Equal(t, wantRotations[k], k.RotationCount())
			assert.NotEmpty(t, k.Color())

			for r, state := range k.rotations() {
				seen := map[GridPoint]bool{}
				for _, c := range state {
					assert.False(t, seen[c], "rotation %d repeats %v", r, c)
					seen[c] = true
					assert.True(t, c.X >= 0 && c.X < 4 && c.Y >= 0 && c.Y < 4)
				}
			}

			top := false
			for _, c := range NewPiece(k).Cells() {
				top = top || c.Y == 0
			}
			assert.True(t, top, "rotation 0 occupies the top row of its frame")
		})
	}
}

func TestRotationIsCyclic(t *testing.T) {
	for _, k := range AllKinds {
		p := NewPiece(k)
		for i := 0; i < k.RotationCount(); i++ {
			p = p.Rotated()
		}
		assert.Equal(t, NewPiece(k), p, k.String())
	}

	assert.Equal(t, NewPiece(KindT).Cells(), Piece{Kind: KindT, Rotation: 4}.Cells())
	assert.Equal(t, Piece{Kind: KindT, Rotation: 3}.Cells(), Piece{Kind: KindT, Rotation: -1}.Cells())
}

func TestKindText(t *testing.T) {
	for _, k := range AllKinds {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("X")
	assert.Error(t, err)

	data, err := json.Marshal(CellState{Type: CellLocked, Kind: KindJ})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"locked","kind":"J"}`, string(data))

	data, err = json.Marshal(CellState{Type: CellEmpty})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"empty"}`, string(data))
}

func TestSpawnOrigin(t *testing.T) {
	assert.Equal(t, GridPoint{X: 3, Y: 0}, SpawnOrigin(KindI))
	assert.Equal(t, GridPoint{X: 4, Y: 0}, SpawnOrigin(KindO))
	assert.Equal(t, GridPoint{X: 3, Y: 0}, SpawnOrigin(KindT))
}
