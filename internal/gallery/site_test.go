package gallery

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSite_ListingURL_Offset(t *testing.T) {
	t.Parallel()

	site := DefaultSite()
	for page := 1; page <= 5; page++ {
		got := site.ListingURL("blonde", page)
		want := fmt.Sprintf("https://realbooru.com/index.php?page=post&s=list&tags=blonde&pid=%d", (page-1)*42)
		require.Equal(t, want, got)
	}
}

func TestSite_ListingURL_TagsVerbatim(t *testing.T) {
	t.Parallel()

	site := DefaultSite()
	tags := "red_hair+outdoors -sky"
	got := site.ListingURL(tags, 3)

	require.True(t, strings.Contains(got, "tags="+tags+"&"), "tags must not be escaped: %s", got)
	require.True(t, strings.HasSuffix(got, "&pid=84"))
}

func TestSite_ListingURL_CustomHost(t *testing.T) {
	t.Parallel()

	site := Site{Scheme: "http", Host: "127.0.0.1:8080", PageSize: 10}
	require.Equal(t, "http://127.0.0.1:8080/index.php?page=post&s=list&tags=x&pid=20", site.ListingURL("x", 3))
}

func TestSite_DefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	site := Site{Host: "example.org"}
	require.Equal(t, 42, site.Offset(2))
	require.Equal(t, "https://example.org/images/a/b/c", site.MediaBaseURL("a", "b", "c", false))
}

func TestSite_MediaBaseURL_VideoHost(t *testing.T) {
	t.Parallel()

	site := DefaultSite()
	require.Equal(t, "https://realbooru.com/images/ab/cd/deadbeef", site.MediaBaseURL("ab", "cd", "deadbeef", false))
	require.Equal(t, "https://video-cdn.realbooru.com/images/ab/cd/deadbeef",
		site.MediaBaseURL("ab", "cd", "deadbeef", true))
}
