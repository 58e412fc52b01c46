package store

import (
	"time"

	"github.com/pitlane/leaguechat/internal/chat"
)

// UpsertMessage caches a display message, keyed by (channel, message id).
// Re-delivery updates status and body in place.
func (db *DB) UpsertMessage(channelKey string, m chat.DisplayMessage) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO messages (channel_key, msg_id, sender_id, sender_name, body, status, is_system, created_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_key, msg_id) DO UPDATE SET
			sender_name = excluded.sender_name,
			body = excluded.body,
			status = excluded.status,
			cached_at = excluded.cached_at`,
		channelKey, m.ID, m.User.ID, m.User.Name, m.Text, string(m.Status), m.System, m.CreatedAt.UnixMilli(), now)
	return err
}

// PromoteMessage rewrites a temp message id to the server-assigned id once
// a synchronous confirmation arrives, marking the row sent. If the server
// row already exists (echo raced the ack) the temp row is dropped instead.
func (db *DB) PromoteMessage(channelKey, tempID, serverID string) error {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE channel_key = ? AND msg_id = ?`,
		channelKey, serverID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		_, err = db.Exec(`DELETE FROM messages WHERE channel_key = ? AND msg_id = ?`, channelKey, tempID)
		return err
	}
	_, err = db.Exec(`UPDATE messages SET msg_id = ?, status = ? WHERE channel_key = ? AND msg_id = ?`,
		serverID, string(chat.StatusSent), channelKey, tempID)
	return err
}

// MarkMessageStatus updates the cached status of one message.
func (db *DB) MarkMessageStatus(channelKey, msgID string, status chat.Status) error {
	_, err := db.Exec(`UPDATE messages SET status = ? WHERE channel_key = ? AND msg_id = ?`,
		string(status), channelKey, msgID)
	return err
}

// RecentMessages returns up to limit cached messages for a channel in
// ascending created_at order.
func (db *DB) RecentMessages(channelKey string, limit int) ([]chat.DisplayMessage, error) {
	rows, err := db.Query(`
		SELECT msg_id, sender_id, sender_name, body, status, is_system, created_at
		FROM (
			SELECT * FROM messages WHERE channel_key = ? ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC`,
		channelKey, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []chat.DisplayMessage
	for rows.Next() {
		var m chat.DisplayMessage
		var status string
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.User.ID, &m.User.Name, &m.Text, &status, &m.System, &createdAt); err != nil {
			return nil, err
		}
		m.Status = chat.Status(status)
		m.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// TouchChannel records the latest activity for a channel.
func (db *DB) TouchChannel(channelKey string, lastMessageAt time.Time, preview string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO channels (key, last_message_at, last_message_preview, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			last_message_at = MAX(channels.last_message_at, excluded.last_message_at),
			last_message_preview = CASE WHEN excluded.last_message_at >= channels.last_message_at THEN excluded.last_message_preview ELSE channels.last_message_preview END,
			updated_at = excluded.updated_at`,
		channelKey, lastMessageAt.UnixMilli(), preview, now)
	return err
}
