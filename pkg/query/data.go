package query

// FilterData is the client-side form of a bound filter.
type FilterData struct {
	Path       []string `json:"path"`
	PathStr    string   `json:"pathStr"`
	PrettyPath []string `json:"prettyPath"`
	Lookup     string   `json:"lookup"`
	Value      string   `json:"value"`
}

// FieldData is the client-side form of a bound field.
type FieldData struct {
	Path       []string `json:"path"`
	PathStr    string   `json:"pathStr"`
	PrettyPath []string `json:"prettyPath"`
	Sort       *string  `json:"sort"`
	Priority   *int     `json:"priority"`
	Pivoted    bool     `json:"pivoted"`
}

// Data is the query metadata returned alongside results.
type Data struct {
	Filters []FilterData `json:"filters"`
	// FilterErrors is parallel to Filters; valid filters have null.
	FilterErrors []*string   `json:"filterErrors"`
	Fields       []FieldData `json:"fields"`
	Model        string      `json:"model"`
	Version      string      `json:"version"`
}

// Data describes the bound query for the client.
func (b *BoundQuery) Data(version string) *Data {
	d := &Data{
		Filters:      make([]FilterData, 0, len(b.Filters)),
		FilterErrors: make([]*string, 0, len(b.Filters)),
		Fields:       make([]FieldData, 0, len(b.Fields)),
		Model:        b.ModelName,
		Version:      version,
	}

	for _, f := range b.Filters {
		d.Filters = append(d.Filters, FilterData{
			Path:       f.Path(),
			PathStr:    f.PathStr(),
			PrettyPath: f.PrettyPath(),
			Lookup:     f.Lookup,
			Value:      f.Value,
		})
		var errMsg *string
		if f.ErrMessage != "" {
			msg := f.ErrMessage
			errMsg = &msg
		}
		d.FilterErrors = append(d.FilterErrors, errMsg)
	}

	for _, f := range b.Fields {
		var direction *string
		if f.Direction != "" {
			dir := f.Direction
			direction = &dir
		}
		d.Fields = append(d.Fields, FieldData{
			Path:       f.Path(),
			PathStr:    f.PathStr(),
			PrettyPath: f.PrettyPath(),
			Sort:       direction,
			Priority:   f.Priority,
			Pivoted:    f.Pivoted,
		})
	}

	return d
}
