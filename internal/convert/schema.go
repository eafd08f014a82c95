package convert

import "github.com/apache/arrow-go/v18/arrow"

// ChunkSize is the maximum number of rows written to a single chunks/*.arrow
// file before the converter rolls over to the next chunk.
const ChunkSize = 50000

// Schema is the fixed Arrow schema shared by every chunk in every session.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "ts_ns", Type: arrow.PrimitiveTypes.Int64},
	{Name: "dir", Type: arrow.PrimitiveTypes.Int8},
	{Name: "s", Type: arrow.PrimitiveTypes.Uint8},
	{Name: "f", Type: arrow.PrimitiveTypes.Uint8},
	{Name: "wbit", Type: arrow.PrimitiveTypes.Uint8},
	{Name: "sysbytes", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "ceid", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "vid", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "rptid", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "row_id", Type: arrow.PrimitiveTypes.Uint32},
}, nil)
