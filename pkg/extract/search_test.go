package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const searchPage = `<!DOCTYPE html>
<html>
<body>
<ol class="work index group">
  <li class="work blurb group">
    <h4 class="heading">
      <a href="/works/3001">Third</a> by <a rel="author" href="/users/a">a</a>
    </h4>
  </li>
  <li class="work blurb group">
    <h4 class="heading">
      <a href="/works/1002">First</a>
    </h4>
    <a href="/works/1002">same work again</a>
  </li>
  <li class="work blurb group">
    <h4 class="heading"><a href="/works/2005">Second</a></h4>
  </li>
  <a href="/users/not-a-work">profile link</a>
</ol>
</body>
</html>`

func TestWorkIDs(t *testing.T) {
	ids := WorkIDs([]byte(searchPage))
	assert.Equal(t, []string{"1002", "2005", "3001"}, ids, "deduplicated and numerically sorted")
}

func TestWorkIDsEmptyPage(t *testing.T) {
	assert.Empty(t, WorkIDs([]byte(`<html><body><p>No results found</p></body></html>`)))
	assert.Empty(t, WorkIDs(nil))
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		page int
		want string
	}{
		{"bare url", "https://example.org/works/search", 2, "https://example.org/works/search?page=2"},
		{"existing query", "https://example.org/works?tag=foo", 3, "https://example.org/works?tag=foo&page=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PageURL(tt.base, tt.page))
		})
	}
}
