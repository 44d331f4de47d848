package cssx

import (
	"errors"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
)

// Process runs the variables, layout and shorthand passes over one stylesheet. name
// is used in errors only. Malformed input yields an input-category error carrying
// the path and, when known, the line and column.
func Process(name string, src []byte) ([]byte, error) {
	out, err := SubstituteVariables(src)
	if err != nil {
		return nil, inputError(name, err)
	}
	out, err = Rewrite(out)
	if err != nil {
		return nil, inputError(name, err)
	}
	return out, nil
}

func inputError(name string, err error) error {
	b := foundationerrors.WrapError(err, foundationerrors.CategoryInput, "invalid stylesheet").
		UserAction().
		WithContext("path", name)

	var (
		uv *UndefinedVariableError
		se *SyntaxError
	)
	switch {
	case errors.As(err, &uv):
		b = b.WithContext("line", uv.Line).WithContext("column", uv.Column)
	case errors.As(err, &se) && se.Line > 0:
		b = b.WithContext("line", se.Line).WithContext("column", se.Column)
	}
	return b.Build()
}
