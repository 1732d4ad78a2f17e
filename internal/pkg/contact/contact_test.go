package contact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validInput() Input {
	return Input{
		Name:    "Anne-Marie Le Gall",
		Email:   "anne@example.fr",
		Message: "Bonjour, je voudrais un devis.",
	}
}

func TestValidateAcceptsValidInput(t *testing.T) {
	assert.Empty(t, Validate(validInput()))

	in := validInput()
	in.Name = "Éloïse O'Neill Jr."
	in.Subject = "Réservation"
	assert.Empty(t, Validate(in))
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		want   string
	}{
		{"name too long", func(in *Input) { in.Name = strings.Repeat("A", 101) }, "Le nom ne doit pas dépasser 100 caractères"},
		{"name missing", func(in *Input) { in.Name = "" }, "Le nom est requis"},
		{"name with digits", func(in *Input) { in.Name = "R2D2" }, "Le nom contient des caractères non autorisés"},
		{"name with markup", func(in *Input) { in.Name = "<b>Bob</b>" }, "Le nom contient des caractères non autorisés"},
		{"name only punctuation", func(in *Input) { in.Name = "- ." }, "Le nom contient des caractères non autorisés"},
		{"email invalid", func(in *Input) { in.Email = "not-an-email" }, "Email invalide"},
		{"email missing", func(in *Input) { in.Email = "" }, "L'email est requis"},
		{"email too long", func(in *Input) { in.Email = strings.Repeat("a", 250) + "@x.fr" }, "L'email ne doit pas dépasser 254 caractères"},
		{"message short", func(in *Input) { in.Message = "short" }, "Le message doit contenir au moins 10 caractères"},
		{"message padded", func(in *Input) { in.Message = "   court     " }, "Le message doit contenir au moins 10 caractères"},
		{"message missing", func(in *Input) { in.Message = "" }, "Le message est requis"},
		{"message too long", func(in *Input) { in.Message = strings.Repeat("x", 2001) }, "Le message ne doit pas dépasser 2000 caractères"},
		{"subject too long", func(in *Input) { in.Subject = strings.Repeat("s", 201) }, "Le sujet ne doit pas dépasser 200 caractères"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			assert.Contains(t, Validate(in), tt.want)
		})
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	errs := Validate(Input{Name: strings.Repeat("A", 101), Email: "x", Message: "short"})
	assert.Len(t, errs, 3)
}

func TestValidateLengthsCountCharacters(t *testing.T) {
	in := validInput()
	in.Name = strings.Repeat("é", 100)
	assert.Empty(t, Validate(in))
}

func TestSanitize(t *testing.T) {
	got := Sanitize(Input{
		Name:    "  Jean <b>Dupont</b> ",
		Email:   "  Jean.Dupont@Example.FR ",
		Message: "<script>alert(1)</script>Bonjour l'équipe !\n",
	})

	assert.Equal(t, "Jean Dupont", got.Name)
	assert.Equal(t, "jean.dupont@example.fr", got.Email)
	assert.Equal(t, DefaultSubject, got.Subject)
	assert.Equal(t, "Bonjour l'équipe !", got.Message)
}

func TestSanitizeKeepsSubject(t *testing.T) {
	got := Sanitize(Input{Subject: " <i>Commande</i> ", Message: "x"})
	assert.Equal(t, "Commande", got.Subject)
}

func TestSanitizeDecodesEntitiesBeforeStripping(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"encoded script", "&lt;script&gt;alert(1)&lt;/script&gt; bonjour", "bonjour"},
		{"double encoded tag", "&amp;lt;b&amp;gt;Salut&amp;lt;/b&amp;gt;", "Salut"},
		{"plain comparison", "3 < 5 et 5 > 3", "3 < 5 et 5 > 3"},
		{"ampersand", "Pizza & Co", "Pizza & Co"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(Input{Message: tt.in}).Message)
		})
	}
}

func TestSanitizeKeepsDeepNestingEscaped(t *testing.T) {
	got := Sanitize(Input{Message: "&amp;amp;amp;amp;lt;b&amp;amp;amp;amp;gt;x"}).Message
	assert.NotContains(t, got, "<")
	assert.NotContains(t, got, ">")
}

func TestClean(t *testing.T) {
	sub, errs := Clean(validInput())
	assert.Empty(t, errs)
	assert.Equal(t, "Bonjour, je voudrais un devis.", sub.Message)

	in := validInput()
	in.Message = "<b></b><i></i>x"
	_, errs = Clean(in)
	assert.Equal(t, []string{"Le message doit contenir au moins 10 caractères"}, errs)

	in.Message = "&lt;script&gt;alert(1)&lt;/script&gt;"
	_, errs = Clean(in)
	assert.Equal(t, []string{"Le message doit contenir au moins 10 caractères"}, errs)

	in.Email = "x"
	_, errs = Clean(in)
	assert.Contains(t, errs, "Email invalide")
}
