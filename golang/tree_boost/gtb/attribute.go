package gtb

import (
	"math"
	"strings"
)

//Attribute is the type tag of a feature column.
type Attribute int

const (
	Quantitative Attribute = iota
	Categorical
)

func (a Attribute) String() string {
	switch a {
	case Quantitative:
		return "Q"
	case Categorical:
		return "C"
	}
	return "?"
}

//ParseAttributes reads a comma separated list of attribute types, e.g. "Q,C,Q" or "[Q,C,Q]".
//An empty string means that attribute types are not supplied and nil is returned.
func ParseAttributes(description string) ([]Attribute, error) {
	description = strings.TrimSpace(description)
	description = strings.TrimPrefix(description, "[")
	description = strings.TrimSuffix(description, "]")
	if strings.TrimSpace(description) == "" {
		return nil, nil
	}

	tokens := strings.Split(description, ",")
	attributes := make([]Attribute, len(tokens))
	for ind, token := range tokens {
		switch strings.ToUpper(strings.TrimSpace(token)) {
		case "Q":
			attributes[ind] = Quantitative
		case "C":
			attributes[ind] = Categorical
		default:
			return nil, configErrorf("unexpected attribute type %q at position %d", token, ind)
		}
	}
	return attributes, nil
}

//ResolveAttributes returns the attribute types for every column of x.
//Missing attribute types are inferred as quantitative.
func ResolveAttributes(attributes []Attribute, x FeatureMatrix) ([]Attribute, error) {
	cols := x.Cols()
	if attributes == nil {
		resolved := make([]Attribute, cols)
		for ind := range resolved {
			resolved[ind] = Quantitative
		}
		return resolved, nil
	}
	if len(attributes) != cols {
		return nil, configErrorf("%d attribute types given for %d feature columns", len(attributes), cols)
	}
	return append([]Attribute(nil), attributes...), nil
}

//ResolveNumVars computes the number of candidate features per split.
//A value in (0, 1] is a fraction of the column count, a value above 1 is an absolute count
//and anything else selects ceil(sqrt(cols)).
func ResolveNumVars(numVars float64, cols int) int {
	var result int
	switch {
	case numVars > 0 && numVars <= 1:
		result = int(numVars * float64(cols))
	case numVars > 1:
		result = int(numVars)
	default:
		result = int(math.Ceil(math.Sqrt(float64(cols))))
	}
	if result > cols {
		result = cols
	}
	if result < 1 {
		result = 1
	}
	return result
}
