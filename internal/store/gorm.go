package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/adsdsdsdad/uMBLER01/internal/model"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options configures the relational store.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          *zap.Logger
}

// GormStore persists state in Postgres or SQLite through gorm.
type GormStore struct {
	db     *gorm.DB
	driver string
	log    *zap.Logger
}

// Open connects, configures the pool and migrates the schema.
func Open(opts Options) (*GormStore, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(opts.DSN))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.Driver == DriverSQLite {
		// one writer keeps sqlite from returning SQLITE_BUSY under concurrent webhooks
		sqlDB.SetMaxOpenConns(1)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &GormStore{db: db, driver: opts.Driver, log: log}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	log.Info("database ready", zap.String("driver", opts.Driver))
	return s, nil
}

// sqliteDSN turns on foreign key enforcement, which SQLite leaves off per connection.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func (s *GormStore) migrate() error {
	if err := s.db.AutoMigrate(&model.Conversation{}, &model.Message{}, &model.ResponseTime{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// UpsertConversation inserts the conversation or merges non-nil fields into it.
func (s *GormStore) UpsertConversation(ctx context.Context, up *ConversationUpsert) error {
	row := &model.Conversation{
		ConversationID: up.ConversationID,
		CustomerName:   up.CustomerName,
		CustomerPhone:  up.CustomerPhone,
		CustomerEmail:  up.CustomerEmail,
		AgentName:      up.AgentName,
		Status:         model.StatusActive,
		IsSiteCustomer: up.IsSiteCustomer,
	}

	agent := "COALESCE(excluded.agent_name, conversations.agent_name)"
	if up.AgentIsPlaceholder {
		agent = "COALESCE(conversations.agent_name, excluded.agent_name)"
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "customer_name"}, Value: gorm.Expr("COALESCE(excluded.customer_name, conversations.customer_name)")},
			{Column: clause.Column{Name: "customer_phone"}, Value: gorm.Expr("COALESCE(excluded.customer_phone, conversations.customer_phone)")},
			{Column: clause.Column{Name: "customer_email"}, Value: gorm.Expr("COALESCE(excluded.customer_email, conversations.customer_email)")},
			{Column: clause.Column{Name: "agent_name"}, Value: gorm.Expr(agent)},
			{Column: clause.Column{Name: "is_site_customer"}, Value: gorm.Expr("conversations.is_site_customer OR excluded.is_site_customer")},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
		},
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert conversation %s: %w", up.ConversationID, err)
	}
	return nil
}

// UpdateConversationStatus sets the lifecycle status.
func (s *GormStore) UpdateConversationStatus(ctx context.Context, conversationID string, status model.ConversationStatus) error {
	return s.updateConversation(ctx, conversationID, map[string]any{"status": status})
}

// UpdateConversationAgent reassigns the agent-of-record.
func (s *GormStore) UpdateConversationAgent(ctx context.Context, conversationID, agentName string) error {
	return s.updateConversation(ctx, conversationID, map[string]any{"agent_name": agentName})
}

func (s *GormStore) updateConversation(ctx context.Context, conversationID string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update conversation %s: %w", conversationID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *GormStore) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Take(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %s: %w", conversationID, err)
	}
	return &conv, nil
}

// ListConversationIDs returns every conversation id in ascending order.
func (s *GormStore) ListConversationIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Order("conversation_id ASC").
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return ids, nil
}

// InsertMessageIfAbsent appends a message unless its id is already stored.
func (s *GormStore) InsertMessageIfAbsent(ctx context.Context, msg *model.Message) (bool, error) {
	row := *msg
	row.Timestamp = normalize(row.Timestamp)

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("failed to insert message %s: %w", msg.MessageID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListMessages returns a conversation's ledger ordered by timestamp.
func (s *GormStore) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order(`"timestamp" ASC, message_id ASC`).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for %s: %w", conversationID, err)
	}
	return utcMessages(msgs), nil
}

// RecentMessages returns the newest messages across all conversations.
func (s *GormStore) RecentMessages(ctx context.Context, limit int) ([]model.Message, error) {
	var msgs []model.Message
	q := s.db.WithContext(ctx).Order(`"timestamp" DESC, message_id ASC`)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	return utcMessages(msgs), nil
}

// MatchPending selects the backlog and inserts its pairings in one transaction.
// On Postgres the conversation row is locked FOR UPDATE so concurrent replies in
// the same conversation run one after the other. SQLite uses a single
// connection, so its transactions are already serial. The unique index on
// customer_message_id rejects a second answer either way.
func (s *GormStore) MatchPending(ctx context.Context, agent *model.Message, pair PairFunc) ([]model.ResponseTime, error) {
	var created []model.ResponseTime
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created = nil
		if err := s.lockConversation(tx, agent.ConversationID); err != nil {
			return err
		}

		pending, err := pendingMessages(tx, agent.ConversationID, agent.Timestamp)
		if err != nil {
			return err
		}
		for _, rt := range pair(pending) {
			inserted, err := insertResponseTime(tx, &rt)
			if err != nil {
				return err
			}
			if inserted {
				created = append(created, rt)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to match pending messages for %s: %w", agent.ConversationID, err)
	}
	return created, nil
}

func (s *GormStore) lockConversation(tx *gorm.DB, conversationID string) error {
	if s.driver != DriverPostgres {
		return nil
	}
	var conv model.Conversation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("conversation_id = ?", conversationID).
		Take(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func pendingMessages(tx *gorm.DB, conversationID string, before time.Time) ([]model.Message, error) {
	answered := tx.
		Model(&model.ResponseTime{}).
		Select("customer_message_id").
		Where("conversation_id = ?", conversationID)

	var msgs []model.Message
	err := tx.
		Where("conversation_id = ? AND sender_type = ? AND message_type = ?",
			conversationID, model.SenderCustomer, model.MessageTypeMessage).
		Where(`"timestamp" < ?`, normalize(before)).
		Where("message_id NOT IN (?)", answered).
		Order(`"timestamp" ASC, message_id ASC`).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return utcMessages(msgs), nil
}

// InsertResponseTimeIfAbsent records a pairing unless it already exists or the
// customer message is already answered.
func (s *GormStore) InsertResponseTimeIfAbsent(ctx context.Context, rt *model.ResponseTime) (bool, error) {
	inserted, err := insertResponseTime(s.db.WithContext(ctx), rt)
	if err != nil {
		return false, fmt.Errorf("failed to insert response time %s/%s: %w",
			rt.CustomerMessageID, rt.AgentMessageID, err)
	}
	return inserted, nil
}

// insertResponseTime relies on ON CONFLICT DO NOTHING without a target, which
// covers both the pair key and the unique customer_message_id.
func insertResponseTime(tx *gorm.DB, rt *model.ResponseTime) (bool, error) {
	row := *rt
	row.CustomerMessageTime = normalize(row.CustomerMessageTime)
	row.AgentResponseTime = normalize(row.AgentResponseTime)

	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListResponseTimes returns a conversation's records ordered by customer message time.
func (s *GormStore) ListResponseTimes(ctx context.Context, conversationID string) ([]model.ResponseTime, error) {
	var rts []model.ResponseTime
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("customer_message_time ASC, customer_message_id ASC, agent_message_id ASC").
		Find(&rts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list response times for %s: %w", conversationID, err)
	}
	return utcResponseTimes(rts), nil
}

// Snapshot reads every table inside one read transaction.
func (s *GormStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("conversation_id ASC").Find(&snap.Conversations).Error; err != nil {
			return err
		}
		if err := tx.Order(`"timestamp" ASC, message_id ASC`).Find(&snap.Messages).Error; err != nil {
			return err
		}
		return tx.Order("customer_message_time ASC, customer_message_id ASC, agent_message_id ASC").
			Find(&snap.ResponseTimes).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	snap.Messages = utcMessages(snap.Messages)
	snap.ResponseTimes = utcResponseTimes(snap.ResponseTimes)
	return snap, nil
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func utcMessages(msgs []model.Message) []model.Message {
	for i := range msgs {
		msgs[i].Timestamp = msgs[i].Timestamp.UTC()
	}
	return msgs
}

func utcResponseTimes(rts []model.ResponseTime) []model.ResponseTime {
	for i := range rts {
		rts[i].CustomerMessageTime = rts[i].CustomerMessageTime.UTC()
		rts[i].AgentResponseTime = rts[i].AgentResponseTime.UTC()
	}
	return rts
}
