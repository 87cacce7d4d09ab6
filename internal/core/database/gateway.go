package database

import (
	"context"
	"database/sql"
	"errors"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	go_ora "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"

	"gin-oracle-auth/internal/core/apperr"
	"gin-oracle-auth/internal/core/config"
)

// DriverName 是 go-ora 注册的驱动名
const DriverName = "oracle"

func init() {
	// go-ora 使用 :name 占位符，sqlx 默认不认识这个驱动名
	sqlx.BindDriver(DriverName, sqlx.NAMED)
}

type Opts struct {
	User             string
	Password         string
	ConnectionString string
	PoolMin          int
	PoolMax          int
	AcquireTimeout   time.Duration
	ConnMaxLifetime  time.Duration
}

func OptsFromConfig(c config.DB) Opts {
	return Opts{
		User:             c.User,
		Password:         c.Password,
		ConnectionString: c.ConnectionString,
		PoolMin:          c.PoolMin,
		PoolMax:          c.PoolMax,
		AcquireTimeout:   time.Duration(c.AcquireTimeoutSec) * time.Second,
		ConnMaxLifetime:  time.Duration(c.ConnMaxLifetimeMin) * time.Minute,
	}
}

// Validate 一次性列出所有缺失的连接参数
func (o Opts) Validate() error {
	var missing []string
	if strings.TrimSpace(o.User) == "" {
		missing = append(missing, "ORACLE_USER")
	}
	if o.Password == "" {
		missing = append(missing, "ORACLE_PASSWORD")
	}
	if strings.TrimSpace(o.ConnectionString) == "" {
		missing = append(missing, "ORACLE_CONNECTION_STRING")
	}
	if len(missing) > 0 {
		return apperr.Configuration("missing required environment variables: " + strings.Join(missing, ", "))
	}
	return nil
}

func (o Opts) withDefaults() Opts {
	if o.PoolMax <= 0 {
		o.PoolMax = 5
	}
	if o.PoolMin < 0 {
		o.PoolMin = 0
	}
	if o.PoolMin > o.PoolMax {
		o.PoolMin = o.PoolMax
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = 10 * time.Second
	}
	return o
}

// Opener 建池；测试里替换成 sqlmock
type Opener func(o Opts) (*sqlx.DB, error)

func openOracle(o Opts) (*sqlx.DB, error) {
	dsn := go_ora.BuildJDBC(o.User, o.Password, o.ConnectionString, nil)
	return sqlx.Open(DriverName, dsn)
}

type Option func(*Gateway)

func WithOpener(op Opener) Option { return func(g *Gateway) { g.open = op } }

// Gateway 持有进程内唯一的连接池：懒创建、可显式关闭、关闭后可重建
type Gateway struct {
	opts Opts
	log  *zap.Logger
	open Opener

	mu sync.Mutex
	db *sqlx.DB
}

func New(o Opts, l *zap.Logger, options ...Option) *Gateway {
	g := &Gateway{opts: o.withDefaults(), log: l, open: openOracle}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Initialize 幂等；池已存在时直接返回
func (g *Gateway) Initialize(ctx context.Context) error {
	_, err := g.ensure(ctx)
	return err
}

func (g *Gateway) ensure(ctx context.Context) (*sqlx.DB, error) {
	if runtime.GOOS == "js" {
		return nil, apperr.Environment("database operations can only be performed on the server side")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.db != nil {
		return g.db, nil
	}

	if err := g.opts.Validate(); err != nil {
		g.log.Error("oracle configuration invalid", zap.Error(err))
		return nil, err
	}
	g.log.Info("connecting to oracle",
		zap.String("user", g.opts.User),
		zap.String("connect_string", g.opts.ConnectionString),
		zap.Int("pool_min", g.opts.PoolMin),
		zap.Int("pool_max", g.opts.PoolMax),
	)

	db, err := g.open(g.opts)
	if err != nil {
		g.log.Error("create oracle pool failed", zap.Error(err))
		return nil, apperr.Datastore("create connection pool", err)
	}
	db.SetMaxOpenConns(g.opts.PoolMax)
	db.SetMaxIdleConns(g.opts.PoolMin)
	db.SetConnMaxLifetime(g.opts.ConnMaxLifetime)

	pctx, cancel := context.WithTimeout(ctx, g.opts.AcquireTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			g.log.Warn("close pool after failed ping", zap.Error(cerr))
		}
		g.log.Error("oracle ping failed", zap.Error(err))
		return nil, apperr.Datastore("connect to datastore", err)
	}

	g.db = db
	g.log.Info("oracle connection pool created")
	return db, nil
}

// Close 幂等；无宽限期，关闭后清空句柄
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	if err != nil {
		g.log.Error("close oracle pool failed", zap.Error(err))
		return apperr.Datastore("close connection pool", err)
	}
	g.log.Info("oracle connection pool closed")
	return nil
}

// Execute 借一个连接执行单条语句，任何出口都归还连接
func (g *Gateway) Execute(ctx context.Context, query string, params Params, opts ...ExecOption) (*Result, error) {
	db, err := g.ensure(ctx)
	if err != nil {
		return nil, err
	}
	o := applyExecOptions(opts)

	conn, err := g.acquire(ctx, db)
	if err != nil {
		return nil, err
	}
	defer g.release(conn)

	if o.autoCommit {
		return g.run(ctx, db, conn, query, params, o)
	}
	// 不自动提交：语句在事务内执行，归还连接前回滚
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		g.log.Error("begin transaction failed", zap.Error(err))
		return nil, apperr.Datastore("begin transaction", err)
	}
	defer g.rollback(tx)
	return g.run(ctx, db, tx, query, params, o)
}

func (g *Gateway) GetRow(ctx context.Context, query string, params Params, opts ...ExecOption) (Row, error) {
	return firstRow(g.Execute(ctx, query, params, opts...))
}

// Tx 在同一连接、同一事务里执行 fn；fn 返回 nil 才提交
func (g *Gateway) Tx(ctx context.Context, fn func(q Querier) error) error {
	db, err := g.ensure(ctx)
	if err != nil {
		return err
	}
	conn, err := g.acquire(ctx, db)
	if err != nil {
		return err
	}
	defer g.release(conn)

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		g.log.Error("begin transaction failed", zap.Error(err))
		return apperr.Datastore("begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			g.rollback(tx)
			panic(p)
		}
	}()

	if err := fn(&session{g: g, db: db, r: tx}); err != nil {
		g.rollback(tx)
		return err
	}
	if err := tx.Commit(); err != nil {
		g.log.Error("commit failed", zap.Error(err))
		return apperr.Datastore("commit transaction", err)
	}
	return nil
}

func (g *Gateway) acquire(ctx context.Context, db *sqlx.DB) (*sqlx.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, g.opts.AcquireTimeout)
	defer cancel()
	conn, err := db.Connx(actx)
	if err != nil {
		g.log.Error("acquire connection failed", zap.Duration("timeout", g.opts.AcquireTimeout), zap.Error(err))
		return nil, apperr.Datastore("acquire connection", err)
	}
	return conn, nil
}

// release 的失败只记日志，不覆盖原始错误
func (g *Gateway) release(conn *sqlx.Conn) {
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		g.log.Warn("release connection failed", zap.Error(err))
	}
}

func (g *Gateway) rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		g.log.Warn("rollback failed", zap.Error(err))
	}
}

type runner interface {
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (g *Gateway) run(ctx context.Context, db *sqlx.DB, r runner, query string, params Params, o execOptions) (*Result, error) {
	if params == nil {
		params = Params{}
	}
	bound, args, err := db.BindNamed(query, params)
	if err != nil {
		g.log.Error("bind parameters failed", zap.String("sql", compact(query)), zap.Error(err))
		return nil, apperr.Internal("bind parameters", err)
	}

	if !isQuery(query) {
		res, err := r.ExecContext(ctx, bound, args...)
		if err != nil {
			g.log.Error("execute statement failed", zap.String("sql", compact(query)), zap.Error(err))
			return nil, apperr.Datastore("execute statement", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = 0
		}
		return &Result{Rows: []Row{}, RowsAffected: n}, nil
	}

	rows, err := r.QueryxContext(ctx, bound, args...)
	if err != nil {
		g.log.Error("execute query failed", zap.String("sql", compact(query)), zap.Error(err))
		return nil, apperr.Datastore("execute query", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			g.log.Warn("close rows failed", zap.Error(cerr))
		}
	}()

	out := make([]Row, 0)
	for rows.Next() {
		if o.maxRows > 0 && len(out) >= o.maxRows {
			break
		}
		m := make(map[string]interface{})
		if err := rows.MapScan(m); err != nil {
			g.log.Error("scan row failed", zap.String("sql", compact(query)), zap.Error(err))
			return nil, apperr.Datastore("scan row", err)
		}
		out = append(out, Row(m))
	}
	if err := rows.Err(); err != nil {
		g.log.Error("iterate rows failed", zap.String("sql", compact(query)), zap.Error(err))
		return nil, apperr.Datastore("iterate rows", err)
	}
	return &Result{Rows: out}, nil
}

// session 是 Tx 内部交给回调的 Querier
type session struct {
	g  *Gateway
	db *sqlx.DB
	r  runner
}

func (s *session) Execute(ctx context.Context, query string, params Params, opts ...ExecOption) (*Result, error) {
	return s.g.run(ctx, s.db, s.r, query, params, applyExecOptions(opts))
}

func (s *session) GetRow(ctx context.Context, query string, params Params, opts ...ExecOption) (Row, error) {
	return firstRow(s.Execute(ctx, query, params, opts...))
}

func firstRow(res *Result, err error) (Row, error) {
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	return res.Rows[0], nil
}

func isQuery(q string) bool {
	s := strings.ToUpper(strings.TrimLeft(q, " \t\r\n("))
	return strings.HasPrefix(s, "SELECT") || strings.HasPrefix(s, "WITH")
}

func compact(q string) string { return strings.Join(strings.Fields(q), " ") }
