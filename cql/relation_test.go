package cql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateCriterion_Operators(t *testing.T) {
	bound := NewTermFactory(true)

	tests := []struct {
		name      string
		criterion Criterion
		text      string
		values    []interface{}
	}{
		{name: "eq", criterion: Eq(Col("age"), 30), text: "age = ?", values: []interface{}{30}},
		{name: "ne", criterion: Ne(Col("age"), 30), text: "age != ?", values: []interface{}{30}},
		{name: "gt", criterion: Gt(Col("age"), 30), text: "age > ?", values: []interface{}{30}},
		{name: "gte", criterion: Gte(Col("age"), 30), text: "age >= ?", values: []interface{}{30}},
		{name: "lt", criterion: Lt(Col("age"), 30), text: "age < ?", values: []interface{}{30}},
		{name: "lte", criterion: Lte(Col("age"), 30), text: "age <= ?", values: []interface{}{30}},
		{name: "like", criterion: Like(Col("name"), "Jo%"), text: "name LIKE ?", values: []interface{}{"Jo%"}},
		{name: "is not null", criterion: IsNotNull(Col("name")), text: "name IS NOT NULL"},
		{name: "contains", criterion: Contains(Col("tags"), "urgent"), text: "tags CONTAINS ?", values: []interface{}{"urgent"}},
		{name: "contains key", criterion: ContainsKey(Col("attrs"), "color"), text: "attrs CONTAINS KEY ?", values: []interface{}{"color"}},
		{name: "quoted column", criterion: Eq(QuotedCol("Age"), 30), text: `"Age" = ?`, values: []interface{}{30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := translateCriterion(tt.criterion, bound)
			require.NoError(t, err)
			assert.Equal(t, tt.text, c.text)
			assert.Equal(t, tt.values, c.values)
		})
	}
}

func TestTranslateCriterion_ContainsRequiresValue(t *testing.T) {
	for _, op := range []Operator{OpContains, OpContainsKey} {
		criterion := Criterion{Column: Col("tags"), Predicate: Predicate{Operator: op}}
		_, err := translateCriterion(criterion, NewTermFactory(true))
		var pe *PreconditionError
		assert.ErrorAs(t, err, &pe)
	}
}

func TestTranslateCriterion_IsNotNullTakesNoValue(t *testing.T) {
	criterion := Criterion{Column: Col("email"), Predicate: Predicate{Operator: OpIsNotNull, Value: "stray"}}
	_, err := translateCriterion(criterion, NewTermFactory(true))

	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "takes no value")
}

func TestTranslateCriterion_UnknownOperator(t *testing.T) {
	criterion := Criterion{Column: Col("age"), Predicate: Predicate{Operator: Operator("BETWEEN"), Value: 5}}
	_, err := translateCriterion(criterion, NewTermFactory(true))

	var ue *UnsupportedOperationError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, Operator("BETWEEN"), ue.Operator)
	assert.Equal(t, 5, ue.Value)
	assert.Contains(t, err.Error(), "BETWEEN")
}

func TestTranslateIn_BindsCollectionAsOneParameter(t *testing.T) {
	c, err := translateIn(Col("id"), []string{"a", "b", "c"}, NewTermFactory(true))
	require.NoError(t, err)
	assert.Equal(t, "id IN ?", c.text)
	assert.Equal(t, []interface{}{[]string{"a", "b", "c"}}, c.values)
}

func TestTranslateIn_ExpandsToLiterals(t *testing.T) {
	f := TermFactory{Bind: true, BindCollections: false}

	c, err := translateIn(Col("id"), []string{"a", "b", "c"}, f)
	require.NoError(t, err)
	assert.Equal(t, "id IN ('a', 'b', 'c')", c.text)
	assert.Empty(t, c.values)
}

func TestTranslateIn_ScalarBindsSingleTerm(t *testing.T) {
	c, err := translateIn(Col("id"), "a", NewTermFactory(true))
	require.NoError(t, err)
	assert.Equal(t, "id IN ?", c.text)
	assert.Equal(t, []interface{}{"a"}, c.values)
}

// A scalar in literal mode must still render a parenthesized list; a bare
// literal after IN is not valid CQL.
func TestTranslateIn_ScalarExpandsInLiteralMode(t *testing.T) {
	c, err := translateIn(Col("id"), "a", NewTermFactory(false))
	require.NoError(t, err)
	assert.Equal(t, "id IN ('a')", c.text)
	assert.Empty(t, c.values)
}

// Both IN forms must select the same rows: the bound collection and the
// expanded literal list carry exactly the same elements in the same order.
func TestTranslateIn_ExpansionEquivalence(t *testing.T) {
	elements := []interface{}{"a", "b", "c"}

	bound, err := translateIn(Col("id"), elements, NewTermFactory(true))
	require.NoError(t, err)
	expanded, err := translateIn(Col("id"), elements, TermFactory{Bind: true, BindCollections: false})
	require.NoError(t, err)

	require.Len(t, bound.values, 1)
	assert.Equal(t, elements, bound.values[0])
	assert.Equal(t, "id IN ('a', 'b', 'c')", expanded.text)
}

func TestTranslateFilter_PreservesOrder(t *testing.T) {
	filter := Filter{
		Gt(Col("age"), 18),
		Eq(Col("city"), "Istanbul"),
		IsNotNull(Col("email")),
	}

	relations, err := translateFilter(filter, NewTermFactory(false))
	require.NoError(t, err)
	require.Len(t, relations, 3)
	assert.Equal(t, "age > 18", relations[0].text)
	assert.Equal(t, "city = 'Istanbul'", relations[1].text)
	assert.Equal(t, "email IS NOT NULL", relations[2].text)
}

func TestTranslateConditions_RejectsNonComparisonOperators(t *testing.T) {
	for _, criterion := range []Criterion{
		Like(Col("name"), "a%"),
		IsNotNull(Col("name")),
		Contains(Col("tags"), "x"),
		ContainsKey(Col("attrs"), "x"),
	} {
		_, err := translateConditions(Filter{criterion}, NewTermFactory(true))
		var ue *UnsupportedOperationError
		assert.ErrorAs(t, err, &ue, "operator %s must not be condition-eligible", criterion.Predicate.Operator)
	}
}

func TestTranslateConditions_AcceptsComparisonSubset(t *testing.T) {
	conditions, err := translateConditions(Filter{
		Eq(Col("version"), 3),
		In(Col("state"), []string{"open", "held"}),
	}, NewTermFactory(true))
	require.NoError(t, err)
	require.Len(t, conditions, 2)
	assert.Equal(t, "version = ?", conditions[0].text)
}

func TestColumnEquality(t *testing.T) {
	assert.True(t, Col("Name").Equal(Col("name")))
	assert.True(t, QuotedCol("Name").Equal(QuotedCol("Name")))
	assert.False(t, QuotedCol("Name").Equal(QuotedCol("name")))
	assert.False(t, Col("name").Equal(QuotedCol("name")))
}
