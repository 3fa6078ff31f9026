// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pathParam = regexp.MustCompile(`\{[^}]+\}`)

func loadDoc(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := LoadOpenAPI(context.Background())
	require.NoError(t, err)
	return doc
}

// Every documented operation is mounted.
func TestRouterParity_DocumentedRoutesMounted(t *testing.T) {
	doc := loadDoc(t)
	router := newTestServer(t, true).srv.Handler().(chi.Routes)

	count := 0
	for path, item := range doc.Paths.Map() {
		concrete := pathParam.ReplaceAllString(path, "x")
		for method := range item.Operations() {
			count++
			assert.True(t, router.Match(chi.NewRouteContext(), method, BaseURL+concrete),
				"route not mounted: %s %s", method, BaseURL+path)
		}
	}
	assert.Greater(t, count, 8)
}

// Every mounted route under BaseURL is documented.
func TestRouterParity_MountedRoutesDocumented(t *testing.T) {
	doc := loadDoc(t)
	routes := newTestServer(t, false).srv.Handler().(chi.Routes)

	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if !strings.HasPrefix(route, BaseURL) {
			return nil
		}
		rel := strings.TrimPrefix(route, BaseURL)
		if len(rel) > 1 {
			rel = strings.TrimSuffix(rel, "/")
		}
		item := doc.Paths.Find(rel)
		if !assert.NotNil(t, item, "undocumented path %s", route) {
			return nil
		}
		assert.NotNil(t, item.GetOperation(method), "undocumented operation %s %s", method, route)
		return nil
	})
	require.NoError(t, err)
}

func TestOperationIDsUnique(t *testing.T) {
	doc := loadDoc(t)
	seen := map[string]string{}
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			require.NotEmpty(t, op.OperationID, "%s %s", method, path)
			if prev, dup := seen[op.OperationID]; dup {
				t.Fatalf("operationId %q used by %s and %s %s", op.OperationID, prev, method, path)
			}
			seen[op.OperationID] = method + " " + path
		}
	}
}

func TestServeOpenAPI(t *testing.T) {
	ts := newTestServer(t, false)
	resp, body := ts.do(t, http.MethodGet, BaseURL+"/openapi.yaml", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Equal(t, "v1", resp.Header.Get("X-API-Version"))
	assert.Equal(t, openAPISpec, body)
}
