package client_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-agency/internal/client"
	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/store"
)

type fakeStore struct {
	clients map[string]store.Client
	seq     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{clients: map[string]store.Client{}}
}

func (f *fakeStore) CreateClient(_ context.Context, c store.Client) (store.Client, error) {
	f.seq++
	c.ID = fmt.Sprintf("client-%d", f.seq)
	f.clients[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetClient(_ context.Context, id string) (store.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return store.Client{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListClients(_ context.Context, _ store.ListFilter) ([]store.Client, int, error) {
	out := make([]store.Client, 0, len(f.clients))
	for _, c := range f.clients {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateClient(_ context.Context, c store.Client) (store.Client, error) {
	if _, ok := f.clients[c.ID]; !ok {
		return store.Client{}, store.ErrNotFound
	}
	f.clients[c.ID] = c
	return c, nil
}

func (f *fakeStore) DeleteClient(_ context.Context, id string) error {
	if _, ok := f.clients[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.clients, id)
	return nil
}

func TestCreateNormalises(t *testing.T) {
	svc := &client.Service{Store: newFakeStore()}
	c, err := svc.Create(context.Background(), client.Input{
		Name:   "  Ada Okafor ",
		Email:  " ada@brightsidebakery.test ",
		Status: "weird",
	})
	require.NoError(t, err)
	require.Equal(t, "Ada Okafor", c.Name)
	require.Equal(t, "ada@brightsidebakery.test", c.Email)
	require.Equal(t, "active", c.Status)
}

func TestCreateValidation(t *testing.T) {
	svc := &client.Service{Store: newFakeStore()}

	_, err := svc.Create(context.Background(), client.Input{Email: "a@b.test"})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = svc.Create(context.Background(), client.Input{Name: "Ada"})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestUpdatePartial(t *testing.T) {
	fs := newFakeStore()
	svc := &client.Service{Store: fs}
	c, err := svc.Create(context.Background(), client.Input{Name: "Ada", Email: "ada@b.test", Phone: "+1555"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), c.ID, client.Input{Status: "inactive"})
	require.NoError(t, err)
	require.Equal(t, "Ada", updated.Name)
	require.Equal(t, "inactive", updated.Status)
}

func TestGetMissing(t *testing.T) {
	svc := &client.Service{Store: newFakeStore()}
	_, err := svc.Get(context.Background(), "nope")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}
