package rules

import (
	"compress/gzip"
	"encoding/gob"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/fasthash/fnv1a"
)

const dataFile = "data"

// A Database records the fingerprint of each target's expanded recipe from
// the last completed run. It never gates execution (every planned command
// runs); the status tool reads it to report which recipes changed.
type Database struct {
	*data
	location string
}

func NewDatabase(dir string) *Database {
	var d *data
	var err error
	var f *os.File
	if f, err = os.Open(filepath.Join(dir, dataFile)); err == nil {
		d, err = loadData(f)
		f.Close()
	}
	if err != nil {
		d = newData()
	}

	return &Database{
		location: dir,
		data:     d,
	}
}

// NewCacheDatabase stores the database in a shared cache directory, keyed by
// the working directory it belongs to.
func NewCacheDatabase(dir, wd string) *Database {
	return NewDatabase(filepath.Join(dir, url.PathEscape(wd)))
}

func (db *Database) Save() error {
	if err := os.MkdirAll(db.location, os.ModePerm); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(db.location, dataFile))
	if err != nil {
		return err
	}
	defer f.Close()
	return db.data.writeTo(f)
}

func (db *Database) InsertRecipe(target string, recipe []string) {
	db.Recipes.insert(target, recipe)
}

func (db *Database) HasRecipe(target string, recipe []string) bool {
	return db.Recipes.has(target, recipe)
}

// Known reports whether any recipe was ever recorded for target.
func (db *Database) Known(target string) bool {
	_, ok := db.Recipes.Hashes[fnv1a.HashString64(target)]
	return ok
}

type data struct {
	Recipes Recipes
}

func newData() *data {
	return &data{
		Recipes: Recipes{
			Hashes: make(map[uint64]uint64),
		},
	}
}

func (d *data) writeTo(w io.Writer) error {
	fz := gzip.NewWriter(w)
	enc := gob.NewEncoder(fz)
	err := enc.Encode(d)
	fz.Close()
	return err
}

func loadData(r io.Reader) (*data, error) {
	var dat data
	fz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	dec := gob.NewDecoder(fz)
	err = dec.Decode(&dat)
	fz.Close()
	return &dat, err
}

type Recipes struct {
	Hashes map[uint64]uint64
}

func (r *Recipes) has(target string, recipe []string) bool {
	if h, ok := r.Hashes[fnv1a.HashString64(target)]; ok {
		return h == hashSlice(recipe)
	}
	return false
}

func (r *Recipes) insert(target string, recipe []string) {
	r.Hashes[fnv1a.HashString64(target)] = hashSlice(recipe)
}

func hashSlice(s []string) uint64 {
	return fnv1a.HashString64(strings.Join(s, "\x00"))
}
