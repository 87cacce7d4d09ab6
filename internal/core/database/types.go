package database

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Params 按名字绑定（:name），调用方的数据永远不拼进 SQL 文本
type Params = map[string]interface{}

// Row 对象形式的一行；Oracle 返回的列名是大写，取值时不区分大小写
type Row map[string]interface{}

type Result struct {
	Rows         []Row
	RowsAffected int64
}

type Querier interface {
	Execute(ctx context.Context, query string, params Params, opts ...ExecOption) (*Result, error)
	GetRow(ctx context.Context, query string, params Params, opts ...ExecOption) (Row, error)
}

// Store 额外提供事务
type Store interface {
	Querier
	Tx(ctx context.Context, fn func(q Querier) error) error
}

var _ Store = (*Gateway)(nil)

type execOptions struct {
	autoCommit bool
	maxRows    int
}

type ExecOption func(*execOptions)

// WithAutoCommit(false) 时语句在事务里执行，连接归还前回滚
func WithAutoCommit(on bool) ExecOption { return func(o *execOptions) { o.autoCommit = on } }

// WithMaxRows 限制读取的行数，0 表示不限
func WithMaxRows(n int) ExecOption { return func(o *execOptions) { o.maxRows = n } }

func applyExecOptions(opts []ExecOption) execOptions {
	o := execOptions{autoCommit: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (r Row) Value(col string) (interface{}, bool) {
	if v, ok := r[col]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, col) {
			return v, true
		}
	}
	return nil, false
}

func (r Row) String(col string) string {
	v, _ := r.Value(col)
	if v == nil {
		return ""
	}
	return cast.ToString(v)
}

func (r Row) Int64(col string) (int64, error) {
	v, _ := r.Value(col)
	return cast.ToInt64E(v)
}

func (r Row) Time(col string) time.Time {
	v, _ := r.Value(col)
	if v == nil {
		return time.Time{}
	}
	return cast.ToTime(v)
}
