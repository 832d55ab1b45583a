package marketplace

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/testutils"
)

func encodeJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestFetchTreeGitHubWalksNestedDirs(t *testing.T) {
	_, baseURL := testutils.SetupMockServer(t, []testutils.MockServerConfig{
		{Method: http.MethodGet, Path: "/raw/index.md", Status: http.StatusOK, ResponseBody: "index content"},
		{Method: http.MethodGet, Path: "/raw/helper.md", Status: http.StatusOK, ResponseBody: "helper content"},
	})
	_, srvURL := testutils.SetupMockServer(t, []testutils.MockServerConfig{
		{Method: http.MethodGet, Path: "/repos/acme/skills/contents/pack", Status: http.StatusOK, ResponseBody: encodeJSON(t, []githubContentEntry{
			{Name: "index.md", Path: "pack/index.md", Type: "file", DownloadURL: baseURL + "/raw/index.md"},
			{Name: "lib", Path: "pack/lib", Type: "dir"},
		})},
		{Method: http.MethodGet, Path: "/repos/acme/skills/contents/pack/lib", Status: http.StatusOK, ResponseBody: encodeJSON(t, []githubContentEntry{
			{Name: "helper.md", Path: "pack/lib/helper.md", Type: "file", DownloadURL: baseURL + "/raw/helper.md"},
		})},
	})

	c := New(WithGitHubAPI(srvURL))
	artifact := &models.Artifact{Origin: models.OriginGitHub, Upstream: "acme/skills/pack@main"}

	tree, err := c.FetchTree(context.Background(), artifact)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "index content", string(tree["index.md"]))
	assert.Equal(t, "helper content", string(tree["lib/helper.md"]))
}

func TestFetchTreeMarketplaceDecodesManifest(t *testing.T) {
	manifest := marketplaceManifest{Files: []marketplaceFile{
		{Path: "index.md", ContentBase64: base64.StdEncoding.EncodeToString([]byte("hello from marketplace"))},
	}}
	_, srvURL := testutils.SetupMockServer(t, []testutils.MockServerConfig{
		{Method: http.MethodGet, Path: "/artifacts/suite-a", Status: http.StatusOK, ResponseBody: manifest},
	})

	c := New(WithMarketplaceAPI(srvURL))
	artifact := &models.Artifact{Origin: models.OriginMarketplace, Upstream: "suite-a"}

	tree, err := c.FetchTree(context.Background(), artifact)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "hello from marketplace", string(tree["index.md"]))
}

func TestFetchTreeLocalOriginIsNoop(t *testing.T) {
	c := New()
	artifact := &models.Artifact{Origin: models.OriginLocal, Upstream: ""}

	tree, err := c.FetchTree(context.Background(), artifact)
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestParseGitHubUpstreamRejectsMissingRepo(t *testing.T) {
	_, err := parseGitHubUpstream("justowner")
	assert.Error(t, err)
}
