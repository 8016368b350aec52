package generator

import (
	"embed"
	"io/fs"
	"path"
	"strings"
)

//go:embed templates
var templateFS embed.FS

// templates 模板名到内容，模板名是templates下去掉扩展名的相对路径，例如global/install
var templates = loadTemplates()

func loadTemplates() map[string]string {
	result := map[string]string{}
	err := fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/"), path.Ext(p))
		result[name] = strings.TrimSuffix(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
		return nil
	})
	if err != nil {
		// 模板是嵌入的，读取失败只能是构建出了问题
		panic(err)
	}
	return result
}

// placeholders 一组占位符和替换值，替换只扫描一遍，替换进去的值不会再被展开
type placeholders []string

// with 追加占位符，同名的占位符以后加入的为准
func (p placeholders) with(pairs ...string) placeholders {
	result := make(placeholders, 0, len(p)+len(pairs))
	result = append(result, pairs...)
	return append(result, p...)
}

func (p placeholders) expand(text string) string {
	return strings.NewReplacer(p...).Replace(text)
}

// lines 展开模板并按行切分
func (p placeholders) lines(template string) []string {
	text, ok := templates[template]
	if !ok {
		panic("unknown template " + template)
	}
	return strings.Split(p.expand(text), "\n")
}
