package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
)

func newTestKeepa(t *testing.T, domainID int, handler http.HandlerFunc) *keepaRepo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewKeepaRepo(KeepaConfig{APIKey: "k", Domain: domainID, BaseURL: srv.URL}, zerolog.Nop()).(*keepaRepo)
}

func TestKeepa_Lookup_CurrentObject(t *testing.T) {
	r := newTestKeepa(t, 5, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		assert.Equal(t, "k", q.Get("key"))
		assert.Equal(t, "5", q.Get("domain"))
		assert.Equal(t, "1", q.Get("stats"))
		assert.Equal(t, "0", q.Get("history"))
		assert.Equal(t, "B0ABCDEFGH", q.Get("asin"))
		assert.Empty(t, q.Get("code"))
		w.Write([]byte(`{"products":[{"asin":"B0ABCDEFGH","title":"Widget","stats":{"current":{"amazon":-1,"buyBox":2980,"new":3100}}}]}`))
	})

	res, err := r.Lookup(context.Background(), domain.Identifiers{ASIN: "B0ABCDEFGH", JAN: "4901234567894"})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "Widget", res.Title)
	assert.Equal(t, 2980, domain.ResolvePrice(res.Stats))
}

func TestKeepa_Lookup_CurrentArrayByJAN(t *testing.T) {
	r := newTestKeepa(t, 5, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "4901234567894", req.URL.Query().Get("code"))
		w.Write([]byte(`{"products":[{"asin":"B0ZZZZZZZ1","title":"Jan item","stats":{"current":[-1,1480,-1]}}]}`))
	})

	res, err := r.Lookup(context.Background(), domain.Identifiers{JAN: "4901234567894"})
	require.NoError(t, err)
	assert.Equal(t, "B0ZZZZZZZ1", res.ASIN)
	assert.Equal(t, 1480, domain.ResolvePrice(res.Stats))
}

func TestKeepa_Lookup_HistoryFallback(t *testing.T) {
	r := newTestKeepa(t, 5, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"products":[{"title":"Old","stats":{"current":{"amazon":-1,"buyBox":0},"buyBox":-1,"buyBoxPrice":[-1,-1]},"data":{"BUY_BOX_SHIPPING":[1200,-1,1500,0]}}]}`))
	})

	res, err := r.Lookup(context.Background(), domain.Identifiers{ASIN: "B0ABCDEFGH"})
	require.NoError(t, err)
	assert.Equal(t, "B0ABCDEFGH", res.ASIN)
	assert.Equal(t, 1500, domain.ResolvePrice(res.Stats))
}

func TestKeepa_Lookup_NoPrice(t *testing.T) {
	r := newTestKeepa(t, 5, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"products":[{"title":"X","stats":{"current":[0,-1]}}]}`))
	})

	res, err := r.Lookup(context.Background(), domain.Identifiers{ASIN: "B0ABCDEFGH"})
	require.NoError(t, err)
	assert.Zero(t, domain.ResolvePrice(res.Stats))
}

func TestKeepa_Lookup_ScalesNonJapanDomains(t *testing.T) {
	r := newTestKeepa(t, 1, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"products":[{"stats":{"current":{"amazon":1999}}}]}`))
	})

	res, err := r.Lookup(context.Background(), domain.Identifiers{ASIN: "B0ABCDEFGH"})
	require.NoError(t, err)
	assert.Equal(t, 19, domain.ResolvePrice(res.Stats))
}

func TestKeepa_Lookup_NotFound(t *testing.T) {
	r := newTestKeepa(t, 5, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"products":[]}`))
	})

	res, err := r.Lookup(context.Background(), domain.Identifiers{ASIN: "B0ABCDEFGH"})
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestKeepa_Lookup_Errors(t *testing.T) {
	r := newTestKeepa(t, 5, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := r.Lookup(context.Background(), domain.Identifiers{ASIN: "B0ABCDEFGH"})
	assert.Error(t, err)

	_, err = r.Lookup(context.Background(), domain.Identifiers{})
	assert.Error(t, err)
}

func TestKeepa_Lookup_MalformedBody(t *testing.T) {
	r := newTestKeepa(t, 5, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := r.Lookup(context.Background(), domain.Identifiers{ASIN: "B0ABCDEFGH"})
	assert.Error(t, err)
}
