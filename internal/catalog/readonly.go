package catalog

import (
	"regexp"
	"strings"

	"CricketSync/internal/apperr"
)

var (
	quotedLiteral = regexp.MustCompile(`'(?:[^']|'')*'`)
	leadingVerb   = regexp.MustCompile(`(?i)^\s*(select|with)\b`)
	forbiddenWord = regexp.MustCompile(`(?i)\b(insert|update|delete|merge|upsert|drop|alter|create|grant|revoke|truncate|attach|detach|pragma|copy|vacuum|reindex|analyze|call|exec|execute|lock|listen|notify|into|load|set|reset|begin|commit|rollback|savepoint|pg_sleep|pg_read_file|pg_read_binary_file|pg_ls_dir|pg_terminate_backend|pg_cancel_backend|lo_import|lo_export|dblink|load_extension|set_config|readfile|writefile)\b`)
)

// CheckReadOnly 检查直接 SQL 是否为单条只读查询，返回去掉末尾分号后的语句。
// 字符串字面量内的内容不参与关键字检查。存储层另在只读事务中执行。
func CheckReadOnly(sql string) (string, error) {
	stmt := strings.TrimSpace(sql)
	stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	if stmt == "" {
		return "", apperr.Invalid("sql", "SQL 不能为空")
	}

	bare := quotedLiteral.ReplaceAllString(stmt, "''")
	if strings.Count(bare, "'")%2 != 0 {
		return "", apperr.Invalid("sql", "字符串字面量未闭合")
	}
	switch {
	case strings.Contains(bare, ";"):
		return "", apperr.Invalid("sql", "只允许单条语句")
	case strings.Contains(bare, "--"), strings.Contains(bare, "/*"):
		return "", apperr.Invalid("sql", "不允许注释")
	case strings.Contains(bare, "$"):
		return "", apperr.Invalid("sql", "不允许使用 $ 占位符或美元引用")
	case strings.Contains(bare, `"`) && strings.Count(bare, `"`)%2 != 0:
		return "", apperr.Invalid("sql", "标识符引号未闭合")
	}
	if !leadingVerb.MatchString(bare) {
		return "", apperr.Invalid("sql", "只允许 SELECT 或 WITH 查询")
	}
	if w := forbiddenWord.FindString(bare); w != "" {
		return "", apperr.Invalid("sql", "不允许的关键字: %s", strings.ToUpper(w))
	}
	return stmt, nil
}
