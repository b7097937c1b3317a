package db

// one row per (domain, scope): the last observed record collection,
// stored as the same JSON document the legacy tooling wrote to disk
const Schema = `
create table if not exists snapshots (
	domain text not null,
	scope text not null,
	data text not null,
	updated_at integer not null,
	primary key (domain, scope)
);
`
