package repo

import "regexp"

// dialect isola as diferenças entre Postgres e SQLite nas mesmas queries
type dialect struct {
	name      string
	forUpdate string // lock pessimista de linha (SQLite já serializa escritores)
	rebind    func(q string) string
	schema    string
}

var pgPlaceholder = regexp.MustCompile(`\$\d+`)

var postgresDialect = dialect{
	name:      "postgres",
	forUpdate: " FOR UPDATE",
	rebind:    func(q string) string { return q },
	schema:    postgresSchema,
}

// SQLite: placeholders $N viram "?" (todas as queries usam $N em ordem crescente)
var sqliteDialect = dialect{
	name:      "sqlite",
	forUpdate: "",
	rebind:    func(q string) string { return pgPlaceholder.ReplaceAllString(q, "?") },
	schema:    sqliteSchema,
}
