package catalog

// ColumnKind 决定格式化方式与对齐
type ColumnKind string

const (
	ColText  ColumnKind = "text"
	ColInt   ColumnKind = "int"
	ColFloat ColumnKind = "float"
	ColDate  ColumnKind = "date"
	// ColAuto 直接 SQL 的结果列，按值的实际类型格式化
	ColAuto ColumnKind = "auto"
)

// Column 结果列语义：Name 为 SQL 列别名，Unit 仅用于展示
type Column struct {
	Name      string     `json:"name"`
	Label     string     `json:"label"`
	Unit      string     `json:"unit,omitempty"`
	Kind      ColumnKind `json:"kind"`
	Precision int32      `json:"precision,omitempty"`
}

func text(name, label string) Column { return Column{Name: name, Label: label, Kind: ColText} }

func integer(name, label, unit string) Column {
	return Column{Name: name, Label: label, Unit: unit, Kind: ColInt}
}

func float(name, label string, precision int32) Column {
	return Column{Name: name, Label: label, Kind: ColFloat, Precision: precision}
}

func date(name, label string) Column { return Column{Name: name, Label: label, Kind: ColDate} }

// AutoColumns 直接 SQL 的列语义
func AutoColumns(names []string) []Column {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Label: n, Kind: ColAuto}
	}
	return cols
}
