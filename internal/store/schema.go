// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// DefaultCollection holds the paper index entries.
	DefaultCollection = "arxiv_papers"

	// DefaultVectorDim matches the BAAI/bge-m3 embedding width.
	DefaultVectorDim = 1024

	vectorField = "vector"
)

// collectionSchema describes one index entry per row: the embedded text's
// vector plus the full paper metadata, denormalized onto both of the
// paper's entries.
func collectionSchema(name string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: name,
		Description:    "Field-partitioned paper index entries for similarity search",
		Fields: []*entity.Field{
			{
				Name:       "doc_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "128"},
			},
			{
				Name:       vectorField,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
			},
			{
				Name:       "paper_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "part",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "16"},
			},
			{
				Name:       "title",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "2048"},
			},
			{
				Name:       "authors",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "8192"},
			},
			{
				Name:       "published",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "32"},
			},
			{
				Name:       "url",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "256"},
			},
		},
	}
}
