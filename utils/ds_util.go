package utils

import (
	"github.com/emirpasic/gods/sets/treeset"
	godsutils "github.com/emirpasic/gods/utils"
)

// SortedStrings 去重并排序
func SortedStrings(list []string) []string {
	set := treeset.NewWith(godsutils.StringComparator)
	for _, value := range list {
		set.Add(value)
	}
	result := make([]string, 0, set.Size())
	for _, value := range set.Values() {
		result = append(result, value.(string))
	}
	return result
}
