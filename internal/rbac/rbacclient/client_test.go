package rbacclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muniadmin/muniadmin/internal/rbac"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	httpClient := &http.Client{Transport: &http.Transport{}}
	t.Cleanup(httpClient.CloseIdleConnections)
	return NewClient(srv.URL+"/", httpClient)
}

func TestFetchSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/permissions/me", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id":4,"role":"DIRECTOR","modules":{"finanzas":["read","finanzas.cajas_chicas.aprobar"]}}`))
	})

	snap, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.UserID)
	assert.Equal(t, rbac.RoleDirector, snap.Role)
	assert.Equal(t, rbac.Snapshot{rbac.ModuleFinanzas: {"read", rbac.PermCajasChicasAprobar}}, snap.Modules)
}

func TestFetchSnapshotErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			want: "status 401",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"modules":`))
			},
			want: "decode snapshot",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestClient(t, tc.handler).FetchSnapshot(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestFetchSnapshotCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.FetchSnapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
