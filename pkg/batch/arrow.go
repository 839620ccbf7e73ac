package batch

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/schema"
	"github.com/ajitpratap0/hivescan/pkg/types"
	"github.com/ajitpratap0/hivescan/pkg/value"
)

// ArrowType maps a column type onto its Arrow counterpart. Types Arrow
// cannot hold map to the null type.
func ArrowType(t *types.ColumnType) arrow.DataType {
	switch t.Kind {
	case types.KindBoolean:
		return arrow.FixedWidthTypes.Boolean
	case types.KindTinyInt:
		return arrow.PrimitiveTypes.Int8
	case types.KindSmallInt:
		return arrow.PrimitiveTypes.Int16
	case types.KindInt:
		return arrow.PrimitiveTypes.Int32
	case types.KindBigInt:
		return arrow.PrimitiveTypes.Int64
	case types.KindFloat:
		return arrow.PrimitiveTypes.Float32
	case types.KindDouble:
		return arrow.PrimitiveTypes.Float64
	case types.KindDecimal:
		return &arrow.Decimal128Type{Precision: t.Precision, Scale: t.Scale}
	case types.KindString, types.KindChar, types.KindVarchar:
		return arrow.BinaryTypes.String
	case types.KindBinary:
		return arrow.BinaryTypes.Binary
	case types.KindDate:
		return arrow.FixedWidthTypes.Date32
	case types.KindTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	case types.KindArray:
		return arrow.ListOf(ArrowType(t.Elem))
	case types.KindMap:
		return arrow.MapOf(ArrowType(t.Key), ArrowType(t.Elem))
	case types.KindStruct:
		fields := make([]arrow.Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = arrow.Field{Name: f.Name, Type: ArrowType(f.Type), Nullable: true}
		}
		return arrow.StructOf(fields...)
	}
	return arrow.Null
}

// ArrowSchema builds the record schema of a projection.
func ArrowSchema(cols []schema.Column) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.Name, Type: ArrowType(c.Type), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// ArrowBatch is a Sink that builds Arrow records. It is not safe for
// concurrent use.
type ArrowBatch struct {
	mem     memory.Allocator
	schema  *arrow.Schema
	builder *array.RecordBuilder
}

// NewArrowBatch returns an empty batch for the projection cols. A nil
// allocator uses the Go allocator.
func NewArrowBatch(mem memory.Allocator, cols []schema.Column) *ArrowBatch {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	s := ArrowSchema(cols)
	return &ArrowBatch{mem: mem, schema: s, builder: array.NewRecordBuilder(mem, s)}
}

// Schema returns the record schema.
func (b *ArrowBatch) Schema() *arrow.Schema { return b.schema }

func (b *ArrowBatch) AppendData(slot int, v value.ColumnValue) error {
	if slot < 0 || slot >= len(b.schema.Fields()) {
		return errors.Newf(errors.ErrorTypeInternal, "slot %d outside a projection of %d columns", slot, len(b.schema.Fields()))
	}
	if err := appendValue(b.builder.Field(slot), v); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeData, "append column %s", b.schema.Field(slot).Name)
	}
	return nil
}

// Record returns the rows appended since the previous Record or Discard and
// resets the batch. Every column must hold exactly rows values.
func (b *ArrowBatch) Record(rows int) (arrow.Record, error) {
	for i := range b.schema.Fields() {
		if n := b.builder.Field(i).Len(); n != rows {
			b.Discard()
			return nil, errors.Newf(errors.ErrorTypeInternal,
				"column %s holds %d values, expected %d", b.schema.Field(i).Name, n, rows).
				WithDetail("column", i)
		}
	}
	if len(b.schema.Fields()) == 0 {
		return array.NewRecord(b.schema, nil, int64(rows)), nil
	}
	return b.builder.NewRecord(), nil
}

// Discard drops the values appended since the last Record.
func (b *ArrowBatch) Discard() {
	b.builder.Release()
	b.builder = array.NewRecordBuilder(b.mem, b.schema)
}

// Release frees the builders. The batch must not be used afterwards.
func (b *ArrowBatch) Release() {
	b.builder.Release()
}

func appendValue(bld array.Builder, v value.ColumnValue) error {
	if v.IsNull() {
		bld.AppendNull()
		return nil
	}

	switch builder := bld.(type) {
	case *array.BooleanBuilder:
		x, err := v.Bool()
		if err != nil {
			return err
		}
		builder.Append(x)
	case *array.Int8Builder:
		x, err := v.Int()
		if err != nil {
			return err
		}
		builder.Append(int8(x))
	case *array.Int16Builder:
		x, err := v.Int()
		if err != nil {
			return err
		}
		builder.Append(int16(x))
	case *array.Int32Builder:
		x, err := v.Int()
		if err != nil {
			return err
		}
		builder.Append(int32(x))
	case *array.Int64Builder:
		x, err := v.Int()
		if err != nil {
			return err
		}
		builder.Append(x)
	case *array.Float32Builder:
		x, err := v.Float()
		if err != nil {
			return err
		}
		builder.Append(float32(x))
	case *array.Float64Builder:
		x, err := v.Float()
		if err != nil {
			return err
		}
		builder.Append(x)
	case *array.Decimal128Builder:
		x, err := v.Decimal()
		if err != nil {
			return err
		}
		builder.Append(x)
	case *array.StringBuilder:
		x, err := v.Text()
		if err != nil {
			return err
		}
		builder.Append(x)
	case *array.BinaryBuilder:
		x, err := v.Bytes()
		if err != nil {
			return err
		}
		builder.Append(x)
	case *array.Date32Builder:
		x, err := v.Time()
		if err != nil {
			return err
		}
		builder.Append(arrow.Date32FromTime(x))
	case *array.TimestampBuilder:
		x, err := v.Time()
		if err != nil {
			return err
		}
		builder.Append(arrow.Timestamp(x.UnixMicro()))
	case *array.ListBuilder:
		elems, err := v.Elements()
		if err != nil {
			return err
		}
		builder.Append(true)
		for _, e := range elems {
			if err := appendValue(builder.ValueBuilder(), e); err != nil {
				return err
			}
		}
	case *array.MapBuilder:
		entries, err := v.Entries()
		if err != nil {
			return err
		}
		builder.Append(true)
		for _, e := range entries {
			// arrow map keys cannot be null
			if e.Key.IsNull() {
				continue
			}
			if err := appendValue(builder.KeyBuilder(), e.Key); err != nil {
				return err
			}
			if err := appendValue(builder.ItemBuilder(), e.Value); err != nil {
				return err
			}
		}
	case *array.StructBuilder:
		fields, err := v.Fields()
		if err != nil {
			return err
		}
		builder.Append(true)
		for i, f := range fields {
			if err := appendValue(builder.FieldBuilder(i), f); err != nil {
				return err
			}
		}
	case *array.NullBuilder:
		builder.AppendNull()
	default:
		return errors.Newf(errors.ErrorTypeInternal, "no append rule for %T", bld)
	}
	return nil
}
