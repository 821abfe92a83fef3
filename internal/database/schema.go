package database

// ConversationPairKey identifies a conversation by subject and the unordered
// pair of participants, so A opening with B and B opening with A collide.
const ConversationPairKey = `subject_type, subject_id, (LEAST(initiator_id, recipient_id)), (GREATEST(initiator_id, recipient_id))`

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		unique_id     TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		avatar        TEXT,
		role          TEXT NOT NULL DEFAULT 'buyer',
		last_seen     TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS conversations (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		subject_type TEXT NOT NULL,
		subject_id   TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		initiator_id UUID NOT NULL REFERENCES users(id),
		recipient_id UUID NOT NULL REFERENCES users(id),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// Older databases carry an ordered UNIQUE constraint that lets the
	// reversed pair through.
	`DO $$
	DECLARE c text;
	BEGIN
		FOR c IN SELECT conname FROM pg_constraint
			WHERE conrelid = 'conversations'::regclass AND contype = 'u'
		LOOP
			EXECUTE format('ALTER TABLE conversations DROP CONSTRAINT %I', c);
		END LOOP;
	END $$`,
	`CREATE UNIQUE INDEX IF NOT EXISTS conversations_subject_pair
		ON conversations (` + ConversationPairKey + `)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_user_id  UUID NOT NULL REFERENCES users(id),
		type            TEXT NOT NULL,
		text            TEXT NOT NULL DEFAULT '',
		file            JSONB,
		reference       JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS messages_conversation_order
		ON messages (conversation_id, created_at DESC, id DESC)`,

	`CREATE TABLE IF NOT EXISTS conversation_reads (
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		user_id         UUID NOT NULL REFERENCES users(id),
		read_at         TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (conversation_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		user_id     UUID NOT NULL,
		scope       TEXT NOT NULL,
		key         TEXT NOT NULL,
		status_code INT NOT NULL,
		response    JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, scope, key)
	)`,
	`CREATE INDEX IF NOT EXISTS idempotency_keys_created_at ON idempotency_keys (created_at)`,
}
