package command

import (
	"fmt"
	"strings"
)

// ParsedNode 解析结果中的一个节点，取值为Redirect、Literal或Argument
type ParsedNode interface {
	parsedNode()
}

// Redirect 解析过程中经过了一个重定向
type Redirect struct {
	Name string
}

// Literal 字面量节点
type Literal struct {
	Text   string
	Offset int
}

// Argument 参数节点
type Argument struct {
	Name   string
	Value  interface{}
	Offset int
	Length int
}

func (Redirect) parsedNode() {}
func (Literal) parsedNode()  {}
func (Argument) parsedNode() {}

// ParseError 命令解析错误，Index是字节偏移
type ParseError struct {
	Message string
	Index   int
	// Near 出错位置附近的文本
	Near string
}

func (p *ParseError) Error() string {
	return fmt.Sprintf("%s at position %d: %s<--[HERE]", p.Message, p.Index, p.Near)
}

// ParsedCommand 一行命令的解析结果，Err不为nil时Nodes为空
type ParsedCommand struct {
	Nodes []ParsedNode
	Err   *ParseError
}

// Parser 命令解析器，只读地使用Grammar，可以并发调用
type Parser struct {
	grammar *Grammar
}

// NewParser 创建命令解析器
func NewParser(grammar *Grammar) *Parser {
	return &Parser{grammar: grammar}
}

// Grammar 返回解析器使用的命令树
func (p *Parser) Grammar() *Grammar {
	return p.grammar
}

const nearLength = 10

func newParseError(line string, index int, format string, args ...interface{}) *ParseError {
	if index > len(line) {
		index = len(line)
	}
	start := index - nearLength
	if start < 0 {
		start = 0
	}
	return &ParseError{Message: fmt.Sprintf(format, args...), Index: index, Near: line[start:index]}
}

// Parse 解析一行命令
func (p *Parser) Parse(line string) ParsedCommand {
	nodes, err := p.parseChildren(line, 0, p.grammar.Root)
	if err != nil {
		return ParsedCommand{Err: err}
	}
	return ParsedCommand{Nodes: nodes}
}

// parseChildren 在pos处尝试parent的所有子节点
func (p *Parser) parseChildren(line string, pos int, parent int) ([]ParsedNode, *ParseError) {
	children := p.grammar.Nodes[parent].Children
	token := line[pos:]
	if i := strings.IndexByte(token, ' '); i >= 0 {
		token = token[:i]
	}
	// 字面量完全匹配时只尝试这个字面量
	for _, child := range children {
		node := &p.grammar.Nodes[child]
		if node.Kind == NodeLiteral && node.Name == token {
			return p.parseNode(line, pos, child)
		}
	}
	var best *ParseError
	for _, child := range children {
		if p.grammar.Nodes[child].Kind != NodeArgument {
			continue
		}
		nodes, err := p.parseNode(line, pos, child)
		if err == nil {
			return nodes, nil
		}
		// 保留消费最多的错误，相同时保留先声明的
		if best == nil || err.Index > best.Index {
			best = err
		}
	}
	if best != nil {
		return nil, best
	}
	if parent == p.grammar.Root {
		return nil, newParseError(line, pos, "Unknown or incomplete command")
	}
	return nil, newParseError(line, pos, "Incorrect argument for command")
}

// parseNode 消费index节点并继续解析剩余部分
func (p *Parser) parseNode(line string, pos int, index int) ([]ParsedNode, *ParseError) {
	node := &p.grammar.Nodes[index]
	var parsed ParsedNode
	end := pos
	switch node.Kind {
	case NodeLiteral:
		parsed = Literal{Text: node.Name, Offset: pos}
		end = pos + len(node.Name)
	case NodeArgument:
		value, n, err := node.Parser.Parse(line[pos:])
		if err != nil {
			return nil, newParseError(line, pos+err.Offset, "%s", err.Message)
		}
		if n < 0 || pos+n > len(line) {
			return nil, newParseError(line, pos, "Invalid argument length")
		}
		parsed = Argument{Name: node.Name, Value: value, Offset: pos, Length: n}
		end = pos + n
	default:
		return nil, newParseError(line, pos, "Unknown or incomplete command")
	}
	if end == len(line) {
		if node.Executable {
			return []ParsedNode{parsed}, nil
		}
		return nil, newParseError(line, end, "Unknown or incomplete command")
	}
	if line[end] != ' ' {
		return nil, newParseError(line, end, "Expected whitespace to end one argument, but found trailing data")
	}
	next := end + 1
	nodes := []ParsedNode{parsed}
	var rest []ParsedNode
	var err *ParseError
	switch {
	case len(node.Children) > 0:
		rest, err = p.parseChildren(line, next, index)
	case node.Redirect != NoRedirect:
		target := node.Redirect
		nodes = append(nodes, Redirect{Name: p.grammar.Nodes[target].Name})
		rest, err = p.parseChildren(line, next, target)
	case !node.Executable:
		// execute run 没有子节点，继续从根节点解析
		rest, err = p.parseChildren(line, next, p.grammar.Root)
	default:
		return nil, newParseError(line, end, "Incorrect argument for command")
	}
	if err != nil {
		return nil, err
	}
	return append(nodes, rest...), nil
}
