package uci

import (
	"errors"
	"fmt"
	"strconv"
)

// Option is an engine setting sent with setoption.
type Option interface {
	UciName() string
	UciValue() string
}

type BoolOption struct {
	Name  string
	Value bool
}

func (opt *BoolOption) UciName() string {
	return opt.Name
}

func (opt *BoolOption) UciValue() string {
	return strconv.FormatBool(opt.Value)
}

type IntOption struct {
	Name  string
	Min   int
	Max   int
	Value int
}

func (opt *IntOption) UciName() string {
	return opt.Name
}

func (opt *IntOption) UciValue() string {
	return strconv.Itoa(opt.Value)
}

func (opt *IntOption) Validate() error {
	if opt.Value < opt.Min || opt.Value > opt.Max {
		return fmt.Errorf("option %v: %w", opt.Name, errOutOfRange)
	}
	return nil
}

type StringOption struct {
	Name  string
	Value string
}

func (opt *StringOption) UciName() string {
	return opt.Name
}

func (opt *StringOption) UciValue() string {
	return opt.Value
}

var errOutOfRange = errors.New("argument out of range")

func OptionCommand(opt Option) string {
	return SetOptionCommand(opt.UciName(), opt.UciValue())
}

// ParseOption builds an option from a raw config value, guessing its type.
func ParseOption(name, value string) Option {
	if v, err := strconv.Atoi(value); err == nil {
		return &IntOption{Name: name, Min: v, Max: v, Value: v}
	}
	if v, err := strconv.ParseBool(value); err == nil {
		return &BoolOption{Name: name, Value: v}
	}
	return &StringOption{Name: name, Value: value}
}
