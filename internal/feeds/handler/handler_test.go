package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedlog/internal/feeds/models"
	"feedlog/internal/feeds/service"
	"feedlog/internal/feeds/store"
	"feedlog/internal/keyregistry"
	nshandler "feedlog/internal/namespace/handler"
	nsservice "feedlog/internal/namespace/service"
	nsstore "feedlog/internal/namespace/store"
	"feedlog/internal/verifier"
	"feedlog/pkg/testutil"
)

func newRouter(t *testing.T, opts ...service.Option) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	namespaces := nsservice.New(nsstore.NewInMemory(), nsservice.WithLogger(logger))
	feeds := service.New(store.NewInMemory(), namespaces, verifier.New(keyregistry.NewInMemory()),
		append([]service.Option{service.WithLogger(logger)}, opts...)...)

	r := chi.NewRouter()
	nshandler.New(namespaces, logger, "").Register(r)
	New(feeds, logger).Register(r)
	return r
}

func submitRequest(t *testing.T, path, envelope string) *http.Request {
	req := testutil.NewRequestWithBody(t, http.MethodPost, path, envelope)
	req.Header.Set("Content-Type", "application/jose")
	return req
}

func TestSubmitAndReadLatest(t *testing.T) {
	router := newRouter(t)
	signer := testutil.NewSigningIdentity(t, "example.com")

	testutil.Given(t, "example.com registered with the tlsCert policy", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/register",
			map[string]any{"issuer": "example.com", "trust_policy": "tlsCert"}))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		testutil.When(t, "a signed item_a envelope is submitted", func(t *testing.T) {
			envelope := signer.SignWithCert(t, jwt.MapClaims{"iss": "example.com", "sub": "item_a", "data": "hello"})
			rr := testutil.DoRequest(router, submitRequest(t, "/submit", envelope))

			testutil.Then(t, "it is recorded as seqno 1 and served as latest", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusCreated)
				receipt := testutil.UnmarshalResponse[models.Receipt](t, rr)
				assert.Equal(t, "example.com", receipt.Issuer)
				assert.Equal(t, "item_a", receipt.Subject)
				assert.EqualValues(t, 1, receipt.Seqno)
				assert.Equal(t, "sha256:"+models.ContentHash([]byte(envelope)), receipt.ItemReference)

				latest := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/namespaces/example.com/feeds/item_a/latest"))
				testutil.AssertStatusOK(t, latest)
				item := testutil.UnmarshalResponse[ItemResponse](t, latest)
				assert.EqualValues(t, 1, item.Seqno)
				assert.Equal(t, receipt.ItemReference, item.ItemReference)
				assert.Empty(t, item.Envelope)

				byNumber := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/namespaces/example.com/feeds/item_a/items/1"))
				testutil.AssertStatusOK(t, byNumber)
			})
		})
	})
}

func TestPathScopedSubmitWithEncodedIssuer(t *testing.T) {
	router := newRouter(t, service.WithStoreEnvelope(true))
	signer := testutil.NewSigningIdentity(t, "localhost/npm")

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/register",
		map[string]any{"issuer": "localhost/npm", "trust_policy": "tlsCert"}))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	envelope := signer.SignWithCert(t, jwt.MapClaims{"version": "1.0.0"})
	for want := uint64(1); want <= 2; want++ {
		rr = testutil.DoRequest(router, submitRequest(t, "/namespaces/localhost%2Fnpm/feeds/left-pad/items", envelope))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		assert.Equal(t, want, testutil.UnmarshalResponse[models.Receipt](t, rr).Seqno)
	}

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/namespaces/localhost%2Fnpm/feeds/left-pad/latest"))
	testutil.AssertStatusOK(t, rr)
	item := testutil.UnmarshalResponse[ItemResponse](t, rr)
	assert.EqualValues(t, 2, item.Seqno)
	assert.Equal(t, envelope, item.Envelope)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/namespaces/localhost%2Fnpm/feeds/left-pad/items/1"))
	testutil.AssertStatusOK(t, rr)
	first := testutil.UnmarshalResponse[ItemResponse](t, rr)
	assert.EqualValues(t, 1, first.Seqno)
	assert.Equal(t, "localhost/npm", first.Issuer)
	assert.Equal(t, item.ItemReference, first.ItemReference)
}

func TestSubjectWithPercentRoundTrips(t *testing.T) {
	router := newRouter(t)
	signer := testutil.NewSigningIdentity(t, "example.com")

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/register",
		map[string]any{"issuer": "example.com", "trust_policy": "tlsCert"}))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	envelope := signer.SignWithCert(t, jwt.MapClaims{"iss": "example.com", "sub": "50%41"})
	rr = testutil.DoRequest(router, submitRequest(t, "/submit", envelope))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	assert.Equal(t, "50%41", testutil.UnmarshalResponse[models.Receipt](t, rr).Subject)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/namespaces/example.com/feeds/50%2541/latest"))
	testutil.AssertStatusOK(t, rr)
	assert.EqualValues(t, 1, testutil.UnmarshalResponse[ItemResponse](t, rr).Seqno)

	rr = testutil.DoRequest(router, submitRequest(t, "/namespaces/example.com/feeds/50%2541/items",
		signer.SignWithCert(t, jwt.MapClaims{"n": 2})))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	receipt := testutil.UnmarshalResponse[models.Receipt](t, rr)
	assert.Equal(t, "50%41", receipt.Subject)
	assert.EqualValues(t, 2, receipt.Seqno)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/namespaces/example.com/feeds/50%2541/items/2"))
	testutil.AssertStatusOK(t, rr)
}

func TestSubmitErrors(t *testing.T) {
	router := newRouter(t)
	signer := testutil.NewSigningIdentity(t, "example.com")
	envelope := signer.SignWithCert(t, jwt.MapClaims{"iss": "example.com", "sub": "item_a"})

	t.Run("unregistered namespace", func(t *testing.T) {
		rr := testutil.DoRequest(router, submitRequest(t, "/submit", envelope))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "ResourceNotFound")

		latest := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/namespaces/example.com/feeds/item_a/latest"))
		testutil.AssertStatusAndError(t, latest, http.StatusNotFound, "ResourceNotFound")
	})

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/register", map[string]any{
		"issuer":       "example.com",
		"trust_policy": "tlsCert",
		"permissions":  map[string]string{"writer_token": "writer-secret"},
	}))
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("malformed envelope", func(t *testing.T) {
		rr := testutil.DoRequest(router, submitRequest(t, "/submit", "garbage"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "InvalidInput")
	})

	t.Run("missing writer token", func(t *testing.T) {
		rr := testutil.DoRequest(router, submitRequest(t, "/submit", envelope))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "Forbidden")
	})

	t.Run("writer token", func(t *testing.T) {
		req := submitRequest(t, "/submit", envelope)
		req.Header.Set(HeaderWriterToken, "writer-secret")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)
	})

	t.Run("bad seqno", func(t *testing.T) {
		for _, seqno := range []string{"0", "-1", "abc"} {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/namespaces/example.com/feeds/item_a/items/"+seqno))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "InvalidInput")
		}
	})

	t.Run("subject that is not UTF-8", func(t *testing.T) {
		req := submitRequest(t, "/namespaces/example.com/feeds/%FF/items", envelope)
		req.Header.Set(HeaderWriterToken, "writer-secret")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "InvalidInput")

		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/namespaces/example.com/feeds/%FF/latest"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "InvalidInput")
	})

	t.Run("unknown seqno", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/namespaces/example.com/feeds/item_a/items/99"))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "ResourceNotFound")
	})
}
