package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		quantity, reorder int32
		want              Status
	}{
		{0, 10, StatusOutOfStock},
		{0, 0, StatusOutOfStock},
		{1, 10, StatusLowStock},
		{10, 10, StatusLowStock},
		{11, 10, StatusInStock},
		{1, 0, StatusInStock},
		{500, 10, StatusInStock},
	}
	for _, c := range cases {
		require.Equal(t, c.want, DeriveStatus(c.quantity, c.reorder),
			"quantity=%d reorder=%d", c.quantity, c.reorder)
	}
}

func TestCreateSeedsInitialStockMovement(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemLedger()

	rec, err := ledger.Create(ctx, "p1", "", 25, 10)
	require.NoError(t, err)
	require.Equal(t, int32(25), rec.Quantity)
	require.Equal(t, StatusInStock, rec.Status)

	mvs, err := ledger.Movements(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, mvs, 1)
	require.Equal(t, DirectionIn, mvs[0].Direction)
	require.Equal(t, int32(25), mvs[0].Quantity)
	require.Equal(t, ReasonInitialStock, mvs[0].Reason)
}

func TestCreateZeroStockWritesNoMovement(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemLedger()

	rec, err := ledger.Create(ctx, "p1", "", 0, 10)
	require.NoError(t, err)
	require.Equal(t, StatusOutOfStock, rec.Status)

	mvs, err := ledger.Movements(ctx, rec.ID)
	require.NoError(t, err)
	require.Empty(t, mvs)
}

func TestAdjustRecomputesStatus(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemLedger()
	rec, err := ledger.Create(ctx, "p1", "", 20, 10)
	require.NoError(t, err)

	rec, err = ledger.Adjust(ctx, rec.ID, -12, ReasonOrderPlaced, "")
	require.NoError(t, err)
	require.Equal(t, int32(8), rec.Quantity)
	require.Equal(t, StatusLowStock, rec.Status)

	rec, err = ledger.Adjust(ctx, rec.ID, -8, ReasonOrderPlaced, "")
	require.NoError(t, err)
	require.Equal(t, int32(0), rec.Quantity)
	require.Equal(t, StatusOutOfStock, rec.Status)
}

func TestAdjustZeroDeltaWritesNoMovement(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemLedger()
	rec, err := ledger.Create(ctx, "p1", "", 20, 10)
	require.NoError(t, err)

	rec, err = ledger.Adjust(ctx, rec.ID, 0, ReasonManualAdjustment, "")
	require.NoError(t, err)
	require.Equal(t, int32(20), rec.Quantity)

	mvs, err := ledger.Movements(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, mvs, 1) // initial_stock only
}

func TestAdjustBelowZeroFails(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemLedger()
	rec, err := ledger.Create(ctx, "p1", "", 3, 10)
	require.NoError(t, err)

	_, err = ledger.Adjust(ctx, rec.ID, -4, ReasonOrderPlaced, "")
	require.ErrorIs(t, err, ErrInsufficientStock)

	// nothing changed, no movement appended
	rec, err = ledger.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, int32(3), rec.Quantity)
	mvs, err := ledger.Movements(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, mvs, 1) // initial_stock only
}

func TestSetAbsolute(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemLedger()
	rec, err := ledger.Create(ctx, "p1", "", 10, 5)
	require.NoError(t, err)

	rec, err = ledger.SetAbsolute(ctx, rec.ID, 4, ReasonManualAdjustment)
	require.NoError(t, err)
	require.Equal(t, int32(4), rec.Quantity)
	require.Equal(t, StatusLowStock, rec.Status)

	mvs, err := ledger.Movements(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, mvs, 2)
	last := mvs[len(mvs)-1]
	require.Equal(t, DirectionOut, last.Direction)
	require.Equal(t, int32(6), last.Quantity)

	// no-op set writes no movement
	_, err = ledger.SetAbsolute(ctx, rec.ID, 4, ReasonManualAdjustment)
	require.NoError(t, err)
	mvs, err = ledger.Movements(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, mvs, 2)
}

// initial + Σin − Σout must equal the current quantity after any sequence
// of changes.
func TestMovementReconciliation(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemLedger()
	const initial = int32(50)
	rec, err := ledger.Create(ctx, "p1", "", initial, 10)
	require.NoError(t, err)

	steps := []struct {
		delta  int32
		reason string
	}{
		{-7, ReasonOrderPlaced},
		{20, ReasonRestock},
		{-15, ReasonOrderPlaced},
		{-2, ReasonDamage},
	}
	for _, s := range steps {
		_, err = ledger.Adjust(ctx, rec.ID, s.delta, s.reason, "")
		require.NoError(t, err)
	}
	_, err = ledger.SetAbsolute(ctx, rec.ID, 40, ReasonManualAdjustment)
	require.NoError(t, err)

	rec, err = ledger.Get(ctx, rec.ID)
	require.NoError(t, err)
	mvs, err := ledger.Movements(ctx, rec.ID)
	require.NoError(t, err)

	var sum int32
	for _, mv := range mvs {
		require.Positive(t, mv.Quantity)
		if mv.Direction == DirectionIn {
			sum += mv.Quantity
		} else {
			sum -= mv.Quantity
		}
	}
	// the initial_stock movement is part of the ledger, so the signed sum
	// alone reproduces the current quantity
	require.Equal(t, rec.Quantity, sum)
}
