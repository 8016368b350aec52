package argument

import "math"

// Time 以tick为单位的时间
type Time struct {
	Ticks int64
	// Unit 原始单位 d、s、t，省略单位时为t
	Unit byte
}

// TimeParser minecraft:time，单位d=24000t，s=20t
type TimeParser struct {
	Min int64
}

func newTimeParser(properties Properties) TimeParser {
	p := TimeParser{}
	if min, ok := properties.float("min"); ok {
		p.Min = int64(min)
	}
	return p
}

func (p TimeParser) Parse(input string) (interface{}, int, *ArgumentError) {
	t, n, err := p.ParseTime(input)
	if err != nil {
		return nil, 0, err
	}
	return t, n, nil
}

// ParseTime 解析时间并返回Time类型
func (p TimeParser) ParseTime(input string) (Time, int, *ArgumentError) {
	v, n, err := parseFloat(input, 32, "float", nil, nil)
	if err != nil {
		return Time{}, 0, err
	}
	unit := byte('t')
	factor := 1.0
	if n < len(input) {
		switch input[n] {
		case 'd':
			unit, factor = 'd', 24000
			n++
		case 's':
			unit, factor = 's', 20
			n++
		case 't':
			n++
		}
	}
	ticks := int64(math.Round(v * factor))
	if ticks < p.Min {
		return Time{}, 0, newError(KindOutOfRange, 0, "Tick count must not be less than %d, found %d", p.Min, ticks)
	}
	return Time{Ticks: ticks, Unit: unit}, n, nil
}
