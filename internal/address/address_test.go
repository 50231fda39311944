package address

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newInput(street string, isDefault bool) CreateInput {
	return CreateInput{
		Type:       TypeHome,
		Street:     street,
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "US",
		IsDefault:  isDefault,
		IsShipping: true,
	}
}

func countDefaults(t *testing.T, book Book, customerID string) int {
	t.Helper()
	addrs, err := book.List(context.Background(), customerID)
	require.NoError(t, err)
	n := 0
	for _, a := range addrs {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func TestCreateFlipsPreviousDefault(t *testing.T) {
	ctx := context.Background()
	book := NewMemBook()

	first, err := book.Create(ctx, "c1", newInput("1 Main St", true))
	require.NoError(t, err)
	require.True(t, first.IsDefault)

	second, err := book.Create(ctx, "c1", newInput("2 Oak Ave", true))
	require.NoError(t, err)
	require.True(t, second.IsDefault)

	require.Equal(t, 1, countDefaults(t, book, "c1"))
	first, err = book.Get(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, first.IsDefault)
}

func TestDefaultUniquenessAcrossSequences(t *testing.T) {
	ctx := context.Background()
	book := NewMemBook()

	a, err := book.Create(ctx, "c1", newInput("1 Main St", false))
	require.NoError(t, err)
	b, err := book.Create(ctx, "c1", newInput("2 Oak Ave", true))
	require.NoError(t, err)
	c, err := book.Create(ctx, "c1", newInput("3 Elm Rd", true))
	require.NoError(t, err)

	require.NoError(t, book.SetDefault(ctx, "c1", a.ID))
	require.NoError(t, book.SetDefault(ctx, "c1", b.ID))
	require.NoError(t, book.SetDefault(ctx, "c1", c.ID))
	require.Equal(t, 1, countDefaults(t, book, "c1"))

	got, err := book.Get(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, got.IsDefault)
}

func TestDefaultScopedPerCustomer(t *testing.T) {
	ctx := context.Background()
	book := NewMemBook()

	_, err := book.Create(ctx, "c1", newInput("1 Main St", true))
	require.NoError(t, err)
	_, err = book.Create(ctx, "c2", newInput("9 Pine Ct", true))
	require.NoError(t, err)

	require.Equal(t, 1, countDefaults(t, book, "c1"))
	require.Equal(t, 1, countDefaults(t, book, "c2"))
}

func TestSetDefaultUnknownAddress(t *testing.T) {
	book := NewMemBook()
	err := book.SetDefault(context.Background(), "c1", "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSoleAddress(t *testing.T) {
	ctx := context.Background()
	book := NewMemBook()
	a, err := book.Create(ctx, "c1", newInput("1 Main St", true))
	require.NoError(t, err)

	require.NoError(t, book.Delete(ctx, "c1", a.ID))
	addrs, err := book.List(ctx, "c1")
	require.NoError(t, err)
	require.Empty(t, addrs)
}

func TestDeleteOtherCustomersAddress(t *testing.T) {
	ctx := context.Background()
	book := NewMemBook()
	a, err := book.Create(ctx, "c1", newInput("1 Main St", false))
	require.NoError(t, err)
	require.ErrorIs(t, book.Delete(ctx, "c2", a.ID), ErrNotFound)
}

func TestCreateRejectsBadType(t *testing.T) {
	in := newInput("1 Main St", false)
	in.Type = "castle"
	_, err := NewMemBook().Create(context.Background(), "c1", in)
	require.ErrorIs(t, err, ErrInvalidType)
}
