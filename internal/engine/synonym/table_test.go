package synonym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_SetReplaces(t *testing.T) {
	tbl := New()

	tbl.Set("difusor", []string{"aromatizador", "umidificador"})
	tbl.Set("difusor", []string{"nebulizador"})

	assert.Equal(t, []string{"nebulizador"}, tbl.Get("difusor"))
	assert.False(t, tbl.Has("difusor", "aromatizador"))
	assert.True(t, tbl.Has("difusor", "nebulizador"))
}

func TestTable_SetNormalizesAndDedupes(t *testing.T) {
	tbl := New()

	tbl.Set("  Vela ", []string{"Círio", "círio", " ", "lamparina"})

	assert.Equal(t, []string{"círio", "lamparina"}, tbl.Get("vela"))
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_EmptyListRemovesWord(t *testing.T) {
	tbl := New()

	tbl.Set("incenso", []string{"defumador"})
	tbl.Set("incenso", nil)

	assert.Empty(t, tbl.Get("incenso"))
	assert.Equal(t, 0, tbl.Len())
}

func TestTable_GetReturnsCopy(t *testing.T) {
	tbl := New()
	tbl.Set("oleo", []string{"essencia"})

	got := tbl.Get("oleo")
	got[0] = "mutated"

	assert.True(t, tbl.Has("oleo", "essencia"))
}

func TestTable_HasUnknownWord(t *testing.T) {
	tbl := New()
	assert.False(t, tbl.Has("nada", "coisa"))
}
