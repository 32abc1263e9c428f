package model

// Statement 参数化查询，值全部通过 Args 绑定，不拼接进 SQL
type Statement struct {
	SQL  string
	Args []interface{}
}

// Row 一行查询结果，key 为列别名
type Row map[string]interface{}

// TeamRef 已解析的球队参数
type TeamRef struct {
	ID   uint64
	Name string
}
