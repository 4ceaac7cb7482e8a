package version

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/course-api/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name            string
		deps            *types.Dependencies
		expectedVersion string
		expectedCommit  string
	}{
		{
			name:            "no build info",
			deps:            nil,
			expectedVersion: "dev",
		},
		{
			name: "build info from binary",
			deps: &types.Dependencies{Build: types.BuildInfo{
				Version:   "1.4.0",
				GitCommit: "abc1234",
				BuildTime: "2025-06-01T00:00:00Z",
			}},
			expectedVersion: "1.4.0",
			expectedCommit:  "abc1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			RegisterRoutes(router, tt.deps)

			for _, path := range []string{"/", "/version"} {
				w := httptest.NewRecorder()
				router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				require.Equal(t, http.StatusOK, w.Code)

				var response types.VersionResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, "Course Generation API", response.Name)
				assert.Equal(t, tt.expectedVersion, response.Version)
				assert.Equal(t, tt.expectedCommit, response.GitCommit)
				assert.Equal(t, "running", response.Status)
			}
		})
	}
}
