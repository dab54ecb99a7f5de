package service

import (
	"regexp"
	"strconv"
	"strings"

	"sprintboard/internal/model"
)

// pointsToken распознает токен story points вида 5pt
var pointsToken = regexp.MustCompile(`^(\d+)pt$`)

// QuickAddResult — результат разбора строки квик-адда
type QuickAddResult struct {
	Title    string
	Type     string
	Priority string
	Assignee string
	Labels   []string
	Points   *int
}

// ParseQuickAdd разбирает строку инлайн-формы создания задачи.
// Атрибуты задаются токенами: #type, @name, +label, !priority и Npt.
// Распознанные токены вырезаются, остаток становится чистым заголовком;
// нераспознанные токены остаются в заголовке. Для повторяющихся токенов
// одного вида побеждает последний, метки накапливаются
func ParseQuickAdd(input string) QuickAddResult {
	var res QuickAddResult
	var titleWords []string
	for _, word := range strings.Fields(input) {
		switch {
		case strings.HasPrefix(word, "#") && len(word) > 1:
			if t := strings.ToLower(word[1:]); model.ValidTaskType(t) {
				res.Type = t
				continue
			}
		case strings.HasPrefix(word, "@") && len(word) > 1:
			res.Assignee = word[1:]
			continue
		case strings.HasPrefix(word, "+") && len(word) > 1:
			res.Labels = append(res.Labels, word[1:])
			continue
		case strings.HasPrefix(word, "!") && len(word) > 1:
			if p := strings.ToLower(word[1:]); model.ValidPriority(p) {
				res.Priority = p
				continue
			}
		default:
			if m := pointsToken.FindStringSubmatch(word); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					res.Points = &n
					continue
				}
			}
		}
		titleWords = append(titleWords, word)
	}
	res.Title = strings.Join(titleWords, " ")
	return res
}
