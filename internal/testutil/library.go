package testutil

import (
	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
)

// Library is a small catalog of mutually referencing entity schemas:
//
//	books:     {author: authors, reviews: [reviews]}
//	authors:   {books: [books]}
//	reviews:   {}
//	magazines: {editor: authors}
//
// Authors and books reference each other, so walking a book reaches the
// book again through its author.
type Library struct {
	Book     *schema.Entity
	Author   *schema.Entity
	Review   *schema.Entity
	Magazine *schema.Entity

	// Publication is a union over books and magazines discriminated by "kind".
	Publication *schema.Union
}

// NewLibrary builds the Library schemas.
func NewLibrary() *Library {
	l := &Library{
		Book:     schema.NewEntity("books"),
		Author:   schema.NewEntity("authors"),
		Review:   schema.NewEntity("reviews"),
		Magazine: schema.NewEntity("magazines"),
	}
	l.Book.Define(schema.Composite{
		"author":  l.Author,
		"reviews": schema.ArrayOf(l.Review),
	})
	l.Author.Define(schema.Composite{
		"books": schema.ArrayOf(l.Book),
	})
	l.Magazine.Define(schema.Composite{
		"editor": l.Author,
	})
	l.Publication = schema.UnionOf(map[string]schema.Node{
		"book":     l.Book,
		"magazine": l.Magazine,
	}, schema.WithSchemaAttribute("kind"))
	return l
}

// LibraryStore returns a fresh normalized store for the Library schemas.
//
// Book 1 is written by author 1, who wrote books 1 and 2. Book 2 points back
// at author 1. Book 3 references author 99, which is not in the store.
func LibraryStore() ir.IRObject {
	return ir.IRObject{
		"books": ir.IRObject{
			"1": ir.IRObject{
				"id":      ir.IRInt(1),
				"title":   ir.IRString("Game of Thrones"),
				"author":  ir.IRInt(1),
				"reviews": ir.IRArray{ir.IRInt(1), ir.IRInt(2)},
			},
			"2": ir.IRObject{
				"id":     ir.IRInt(2),
				"title":  ir.IRString("Livre 2"),
				"author": ir.IRInt(1),
			},
			"3": ir.IRObject{
				"id":     ir.IRInt(3),
				"title":  ir.IRString("Orphan"),
				"author": ir.IRInt(99),
			},
		},
		"authors": ir.IRObject{
			"1": ir.IRObject{
				"id":    ir.IRInt(1),
				"name":  ir.IRString("Georges RR Martin"),
				"books": ir.IRArray{ir.IRInt(1), ir.IRInt(2)},
			},
		},
		"reviews": ir.IRObject{
			"1": ir.IRObject{"id": ir.IRInt(1), "content": ir.IRString("Super livre")},
			"2": ir.IRObject{"id": ir.IRInt(2), "content": ir.IRString("Bof bof")},
		},
		"magazines": ir.IRObject{
			"7": ir.IRObject{
				"id":     ir.IRInt(7),
				"title":  ir.IRString("Locus"),
				"editor": ir.IRInt(1),
			},
		},
	}
}

// Replace returns a copy of store in which partition[id] is entity.
// Other partitions and entities keep their identity, the way an immutable
// state update replaces only the changed path.
func Replace(store ir.IRObject, partition, id string, entity ir.IRValue) ir.IRObject {
	out := make(ir.IRObject, len(store))
	for k, v := range store {
		out[k] = v
	}
	old, _ := store[partition].(ir.IRObject)
	part := make(ir.IRObject, len(old)+1)
	for k, v := range old {
		part[k] = v
	}
	part[id] = entity
	out[partition] = part
	return out
}

// With returns a shallow copy of obj with field set to v.
func With(obj ir.IRValue, field string, v ir.IRValue) ir.IRObject {
	src, _ := obj.(ir.IRObject)
	out := make(ir.IRObject, len(src)+1)
	for k, val := range src {
		out[k] = val
	}
	out[field] = v
	return out
}
