package argument

import "fmt"

// CoordinateKind 坐标的类型
type CoordinateKind int

const (
	CoordinateAbsolute CoordinateKind = iota
	// CoordinateRelative ~
	CoordinateRelative
	// CoordinateLocal ^
	CoordinateLocal
)

// Coordinate 坐标的一个分量
type Coordinate struct {
	Kind  CoordinateKind
	Value float64
}

// Coordinates 多个坐标分量
type Coordinates []Coordinate

// CoordinatesParser vec2、vec3、block_pos、column_pos和rotation
type CoordinatesParser struct {
	Count    int
	Integer  bool
	Rotation bool
}

func (p CoordinatesParser) incomplete(offset int) *ArgumentError {
	if p.Count == 2 && p.Rotation {
		return newError(KindExpected, offset, "Incomplete (expected 2 coordinates)")
	}
	return newError(KindExpected, offset, "Incomplete (expected %d coordinates)", p.Count)
}

func (p CoordinatesParser) Parse(input string) (interface{}, int, *ArgumentError) {
	if input == "" || input[0] == ' ' {
		return nil, 0, newError(KindEmpty, 0, "Expected coordinates")
	}
	coordinates := make(Coordinates, 0, p.Count)
	i := 0
	for k := 0; k < p.Count; k++ {
		if k > 0 {
			if i >= len(input) || input[i] != ' ' || i+1 >= len(input) || input[i+1] == ' ' {
				return nil, 0, p.incomplete(i)
			}
			i++
		}
		c, n, err := p.parseCoordinate(input[i:])
		if err != nil {
			return nil, 0, err.shift(i)
		}
		coordinates = append(coordinates, c)
		i += n
	}
	local := 0
	for _, c := range coordinates {
		if c.Kind == CoordinateLocal {
			local++
		}
	}
	if local != 0 && local != len(coordinates) {
		return nil, 0, newError(KindInvalid, 0, "Cannot mix world & local coordinates (everything must either use ^ or not)")
	}
	return coordinates, i, nil
}

func (p CoordinatesParser) parseCoordinate(input string) (Coordinate, int, *ArgumentError) {
	c := Coordinate{}
	i := 0
	switch input[0] {
	case '~':
		c.Kind = CoordinateRelative
		i++
	case '^':
		if p.Rotation {
			return Coordinate{}, 0, newError(KindInvalid, 0, "Cannot use local coordinates for rotation")
		}
		c.Kind = CoordinateLocal
		i++
	}
	text := readNumber(input[i:])
	if text == "" {
		if c.Kind == CoordinateAbsolute {
			return Coordinate{}, 0, newError(KindExpected, 0, "Expected coordinate")
		}
		return c, i, nil
	}
	if p.Integer && c.Kind == CoordinateAbsolute {
		v, n, err := parseInt(input[i:], 32, "integer", -2147483648, 2147483647)
		if err != nil {
			return Coordinate{}, 0, err.shift(i)
		}
		c.Value = float64(v)
		return c, i + n, nil
	}
	v, n, err := parseFloat(input[i:], 64, "double", nil, nil)
	if err != nil {
		return Coordinate{}, 0, err.shift(i)
	}
	c.Value = v
	return c, i + n, nil
}

func (c Coordinate) String() string {
	prefix := ""
	switch c.Kind {
	case CoordinateRelative:
		prefix = "~"
	case CoordinateLocal:
		prefix = "^"
	}
	if c.Kind != CoordinateAbsolute && c.Value == 0 {
		return prefix
	}
	return fmt.Sprintf("%s%v", prefix, c.Value)
}
