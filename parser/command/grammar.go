// Package command 根据brigadier命令树解析一行命令。
package command

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
)

// NodeKind 命令树节点类型
type NodeKind int

const (
	NodeRoot NodeKind = iota
	NodeLiteral
	NodeArgument
)

// NoRedirect 节点没有重定向
const NoRedirect = -1

// Node 命令树中的一个节点，Children和Redirect都是Grammar.Nodes中的下标
type Node struct {
	Kind       NodeKind
	Name       string
	Children   []int
	Executable bool
	Redirect   int
	ParserID   string
	Parser     argument.Parser
}

// Grammar 命令树，加载后不可修改，可以并发使用
type Grammar struct {
	Nodes []Node
	// Root 根节点下标，固定为0
	Root int
}

//go:embed commands.json
var defaultCommands []byte

// DefaultGrammar 内置的精简命令树
func DefaultGrammar() (*Grammar, error) {
	return LoadGrammar(strings.NewReader(string(defaultCommands)))
}

// LoadGrammarFile 从文件中加载命令树，例如数据生成器输出的commands.json
func LoadGrammarFile(path string) (*Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := LoadGrammar(f)
	if err != nil {
		return nil, fmt.Errorf("load grammar %s: %w", path, err)
	}
	return g, nil
}

// LoadGrammar 使用流式解码读取命令树，保留子节点的声明顺序
func LoadGrammar(r io.Reader) (*Grammar, error) {
	dec := json.NewDecoder(r)
	g := &Grammar{}
	redirects := map[int][]string{}
	if _, err := g.decodeNode(dec, "", redirects); err != nil {
		return nil, err
	}
	if g.Nodes[0].Kind != NodeRoot {
		return nil, fmt.Errorf("expected root node, found %s", g.Nodes[0].Name)
	}
	for index, path := range redirects {
		target, ok := g.Find(path...)
		if !ok {
			return nil, fmt.Errorf("unresolved redirect %s of node %s", strings.Join(path, " "), g.Nodes[index].Name)
		}
		g.Nodes[index].Redirect = target
	}
	return g, nil
}

func expectDelim(dec *json.Decoder, delim json.Delim) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := t.(json.Delim); !ok || d != delim {
		return fmt.Errorf("expected %s, found %v", delim, t)
	}
	return nil
}

// decodeNode 解码一个节点并加入到arena中，返回节点下标
func (g *Grammar) decodeNode(dec *json.Decoder, name string, redirects map[int][]string) (int, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return 0, err
	}
	index := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{Name: name, Redirect: NoRedirect})
	var properties argument.Properties
	var nodeType string
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return 0, err
		}
		key, _ := t.(string)
		switch key {
		case "type":
			err = dec.Decode(&nodeType)
		case "executable":
			err = dec.Decode(&g.Nodes[index].Executable)
		case "parser":
			err = dec.Decode(&g.Nodes[index].ParserID)
		case "properties":
			err = dec.Decode(&properties)
		case "redirect":
			var path []string
			err = dec.Decode(&path)
			redirects[index] = path
		case "children":
			err = g.decodeChildren(dec, index, redirects)
		default:
			var skip json.RawMessage
			err = dec.Decode(&skip)
		}
		if err != nil {
			return 0, fmt.Errorf("node %s: %w", name, err)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return 0, err
	}
	node := &g.Nodes[index]
	switch nodeType {
	case "root":
		node.Kind = NodeRoot
	case "literal":
		node.Kind = NodeLiteral
	case "argument":
		node.Kind = NodeArgument
		node.Parser, _ = argument.New(node.ParserID, properties)
	default:
		return 0, fmt.Errorf("node %s: unknown type %q", name, nodeType)
	}
	return index, nil
}

func (g *Grammar) decodeChildren(dec *json.Decoder, parent int, redirects map[int][]string) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := t.(string)
		child, err := g.decodeNode(dec, name, redirects)
		if err != nil {
			return err
		}
		g.Nodes[parent].Children = append(g.Nodes[parent].Children, child)
	}
	return expectDelim(dec, '}')
}

// Find 从根节点开始按名称查找节点，空路径返回根节点
func (g *Grammar) Find(path ...string) (int, bool) {
	current := g.Root
	for _, name := range path {
		found := false
		for _, child := range g.Nodes[current].Children {
			if g.Nodes[child].Name == name {
				current = child
				found = true
				break
			}
		}
		if !found {
			logrus.Debugf("[grammar] node %s not found", strings.Join(path, " "))
			return 0, false
		}
	}
	return current, true
}
