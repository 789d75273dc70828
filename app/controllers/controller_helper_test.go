package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeForStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   string
	}{
		{fiber.StatusBadRequest, "bad_request"},
		{fiber.StatusUnauthorized, "unauthorized"},
		{fiber.StatusForbidden, "forbidden"},
		{fiber.StatusNotFound, "not_found"},
		{fiber.StatusConflict, "conflict"},
		{fiber.StatusInternalServerError, "internal_server_error"},
		{fiber.StatusBadGateway, "internal_server_error"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, errorCodeForStatus(tc.status))
	}
}

func TestParsePagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantOffset int
		wantLimit  int
	}{
		{"defaults", "", 0, defaultPageLimit},
		{"explicit values", "?skip=40&limit=10", 40, 10},
		{"negative skip clamped", "?skip=-5", 0, defaultPageLimit},
		{"zero limit replaced", "?limit=0", 0, defaultPageLimit},
		{"limit capped", "?limit=5000", 0, maxPageLimit},
		{"garbage ignored", "?skip=abc&limit=xyz", 0, defaultPageLimit},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			app := fiber.New()
			var gotOffset, gotLimit int
			app.Get("/", func(c *fiber.Ctx) error {
				gotOffset, gotLimit = parsePagination(c)
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/"+tc.query, nil))
			require.NoError(t, err)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)

			assert.Equal(t, tc.wantOffset, gotOffset)
			assert.Equal(t, tc.wantLimit, gotLimit)
		})
	}
}

func TestParseIDParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		wantID  uint
		wantErr bool
	}{
		{"valid id", "/42", 42, false},
		{"zero rejected", "/0", 0, true},
		{"non numeric rejected", "/abc", 0, true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			app := fiber.New()
			var gotID uint
			var gotErr error
			app.Get("/:id", func(c *fiber.Ctx) error {
				gotID, gotErr = parseIDParam(c, "id")
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
			require.NoError(t, err)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)

			if tc.wantErr {
				assert.Error(t, gotErr)
			} else {
				assert.NoError(t, gotErr)
				assert.Equal(t, tc.wantID, gotID)
			}
		})
	}
}
