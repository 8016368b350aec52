package argument

import (
	"strconv"
	"strings"
)

// Range min..max形式的范围，Min或Max为nil表示开区间
type Range struct {
	Min *float64
	Max *float64
}

func (r Range) String() string {
	var sb strings.Builder
	if r.Min != nil {
		sb.WriteString(strconv.FormatFloat(*r.Min, 'f', -1, 64))
	}
	if r.Min == nil || r.Max == nil || *r.Min != *r.Max {
		sb.WriteString("..")
		if r.Max != nil {
			sb.WriteString(strconv.FormatFloat(*r.Max, 'f', -1, 64))
		}
	}
	return sb.String()
}

// RangeParser minecraft:int_range和minecraft:float_range
type RangeParser struct {
	Decimals bool
}

func (p RangeParser) Parse(input string) (interface{}, int, *ArgumentError) {
	r, n, err := p.parseRange(input)
	if err != nil {
		return nil, 0, err
	}
	return r, n, nil
}

// readRangeBound 读取一个边界，遇到..时停止
func (p RangeParser) readRangeBound(input string) (*float64, int, *ArgumentError) {
	i := 0
	for i < len(input) && isAllowedInNumber(input[i]) {
		if input[i] == '.' && i+1 < len(input) && input[i+1] == '.' {
			break
		}
		i++
	}
	text := input[:i]
	if text == "" {
		return nil, 0, nil
	}
	if text == "-" {
		return nil, 0, newError(KindEmpty, 1, "Expected value or range of values")
	}
	var v float64
	var err error
	if p.Decimals {
		v, err = strconv.ParseFloat(text, 64)
	} else {
		var iv int64
		iv, err = strconv.ParseInt(text, 10, 32)
		v = float64(iv)
	}
	if err != nil {
		kind := "integer"
		if p.Decimals {
			kind = "float"
		}
		return nil, 0, newError(KindInvalid, 0, "Invalid %s '%s'", kind, text)
	}
	return &v, i, nil
}

func (p RangeParser) parseRange(input string) (Range, int, *ArgumentError) {
	min, i, err := p.readRangeBound(input)
	if err != nil {
		return Range{}, 0, err
	}
	r := Range{Min: min}
	if strings.HasPrefix(input[i:], "..") {
		i += 2
		max, n, err := p.readRangeBound(input[i:])
		if err != nil {
			return Range{}, 0, err.shift(i)
		}
		r.Max = max
		i += n
	} else {
		r.Max = min
	}
	if r.Min == nil && r.Max == nil {
		return Range{}, 0, newError(KindEmpty, 0, "Expected value or range of values")
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return Range{}, 0, newError(KindInvalid, 0, "Min cannot be bigger than max")
	}
	return r, i, nil
}
