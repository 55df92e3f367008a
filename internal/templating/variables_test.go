package templating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name string
		text string
		vars Variables
		want string
	}{
		{name: "known and unknown", text: "Hi {{name}}, visit {{missing}}", vars: Variables{"name": "Sam"}, want: "Hi Sam, visit "},
		{name: "inner whitespace", text: "{{ name }}/{{\tstore_name }}", vars: Variables{"name": "Sam", "store_name": "Acme"}, want: "Sam/Acme"},
		{name: "no tokens", text: "plain text", vars: nil, want: "plain text"},
		{name: "empty", text: "", vars: Variables{"name": "Sam"}, want: ""},
		{name: "invalid token left alone", text: "{{first-name}}", vars: Variables{"first-name": "x"}, want: "{{first-name}}"},
		{name: "repeated", text: "{{a}}{{a}}", vars: Variables{"a": "x"}, want: "xx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.text, tt.vars))
		})
	}
}

func TestSubstituteIsIdempotent(t *testing.T) {
	vars := Variables{"name": "Sam", "email": "sam@example.com"}
	once := Substitute("Hello {{name}} <{{email}}> {{unknown}}", vars)
	assert.Equal(t, once, Substitute(once, vars))
}

func TestSubstituteHTMLEscapesValues(t *testing.T) {
	out := SubstituteHTML("<p>{{name}}</p>", Variables{"name": `<script>"x"</script>`})
	assert.Equal(t, "<p>&lt;script&gt;&#34;x&#34;&lt;/script&gt;</p>", out)
}

func TestVariablesWithCopies(t *testing.T) {
	base := Variables{"name": "Sam"}
	next := base.With("name", "Alex", "email", "a@example.com")

	assert.Equal(t, "Sam", base["name"])
	assert.Equal(t, "Alex", next["name"])
	assert.Equal(t, "a@example.com", next["email"])
}
