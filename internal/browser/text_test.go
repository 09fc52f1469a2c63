package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseBody(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader("<html><body>" + markup + "</body></html>"))
	require.NoError(t, err)

	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil && body == nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	require.NotNil(t, body)
	return body
}

func TestInnerText(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "collapses whitespace",
			markup: "<span>  ACME \n\t HOLDINGS   LLC </span>",
			want:   "ACME HOLDINGS LLC",
		},
		{
			name:   "br becomes newline",
			markup: "123 MAIN ST<br/>MIAMI, FL 33101",
			want:   "123 MAIN ST\nMIAMI, FL 33101",
		},
		{
			name:   "block elements break lines",
			markup: "<span>Principal Address</span><span><div>1 OCEAN DR<br>SUITE 2</div></span>",
			want:   "Principal Address\n1 OCEAN DR\nSUITE 2",
		},
		{
			name:   "adjacent inline elements keep their separating space",
			markup: "<span>Title</span>&nbsp;<span>MGR</span>",
			want:   "Title MGR",
		},
		{
			name:   "script and style are skipped",
			markup: "<script>var x = 1;</script><style>p{}</style><p>visible</p>",
			want:   "visible",
		},
		{
			name:   "empty lines are dropped",
			markup: "<br><br><p>one</p><p></p><br><p>two</p>",
			want:   "one\ntwo",
		},
		{
			name:   "table cells are tab separated",
			markup: "<table><tr><td>A</td><td>B</td></tr><tr><td>C</td></tr></table>",
			want:   "A\tB\nC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			got := InnerText(parseBody(t, tt.markup))

			// Assert
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInnerText_Nil(t *testing.T) {
	assert.Equal(t, "", InnerText(nil))
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, " a b ", collapseSpace("\n a  b \t"))
	assert.Equal(t, "", collapseSpace(""))
}
