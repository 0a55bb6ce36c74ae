package lossbridge

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/objectives"
)

//lossSpec is a parsed name[:key=value[,key=value]*] specification.
type lossSpec struct {
	name   string
	params objectives.Params
}

const specWhitespace = " \t\n\r\v\f"

func isNameByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func checkName(what, name string) error {
	if name == "" {
		return errors.Wrapf(ErrMalformedSpec, "empty %s", what)
	}
	for i := 0; i < len(name); i++ {
		if !isNameByte(name[i]) {
			return errors.Wrapf(ErrMalformedSpec, "%s %q has character %q", what, name, name[i])
		}
	}
	return nil
}

//parseSpec copies what it needs out of spec; the span is not retained.
func parseSpec(spec []byte) (lossSpec, error) {
	text := strings.Trim(string(spec), specWhitespace)
	name, rest, hasParams := strings.Cut(text, ":")
	name = strings.TrimRight(name, specWhitespace)
	if err := checkName("loss name", name); err != nil {
		return lossSpec{}, err
	}

	parsed := lossSpec{name: name, params: objectives.Params{}}
	if !hasParams {
		return parsed, nil
	}
	if strings.Trim(rest, specWhitespace) == "" {
		return lossSpec{}, errors.Wrapf(ErrMalformedSpec, "%q has a colon but no parameters", name)
	}

	for _, item := range strings.Split(rest, ",") {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			return lossSpec{}, errors.Wrapf(ErrMalformedSpec, "parameter %q has no value", strings.Trim(item, specWhitespace))
		}
		key = strings.Trim(key, specWhitespace)
		value = strings.Trim(value, specWhitespace)
		if err := checkName("parameter name", key); err != nil {
			return lossSpec{}, err
		}
		if _, seen := parsed.params[key]; seen {
			return lossSpec{}, errors.Wrapf(ErrMalformedSpec, "parameter %q given twice", key)
		}
		number, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return lossSpec{}, errors.Wrapf(ErrMalformedSpec, "parameter %q: %q is not a number", key, value)
		}
		parsed.params[key] = number
	}
	return parsed, nil
}
