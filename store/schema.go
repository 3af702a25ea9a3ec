package store

// Schema is the canonical DDL for the core tables named in.
// It is applied by an operator-run migration tool, not by this process at
// boot — kept here as the single source of truth for column names and the
// CHECK constraints that make the invariants of §8 enforceable at the
// database layer, not just in application code.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	phone TEXT UNIQUE NOT NULL,
	email TEXT,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active'
	 CHECK (status IN ('active','review','limited','suspended','banned')),
	suspended_until TIMESTAMPTZ,
	banned_at TIMESTAMPTZ,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	tier TEXT NOT NULL DEFAULT 'bronze'
	 CHECK (tier IN ('bronze','silver','gold','platinum')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS real_balances (
	user_id BIGINT PRIMARY KEY REFERENCES users(id),
	available NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (available >= 0),
	locked NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (locked >= 0)
);

CREATE TABLE IF NOT EXISTS virtual_balances (
	user_id BIGINT PRIMARY KEY REFERENCES users(id),
	balance NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS treasury (
	id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	balance NUMERIC(18,2) NOT NULL DEFAULT 0,
	total_fees_collected NUMERIC(18,2) NOT NULL DEFAULT 0,
	total_transactions BIGINT NOT NULL DEFAULT 0,
	last_transaction_at TIMESTAMPTZ
);
INSERT INTO treasury (id) VALUES (1) ON CONFLICT DO NOTHING;

CREATE TABLE IF NOT EXISTS transaction_log (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	amount NUMERIC(18,2) NOT NULL CHECK (amount > 0),
	kind TEXT NOT NULL,
	description TEXT,
	status TEXT NOT NULL DEFAULT 'completed',
	reference TEXT NOT NULL,
	purchase_price NUMERIC(18,2),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transaction_log_user ON transaction_log(user_id);
CREATE INDEX IF NOT EXISTS idx_transaction_log_reference ON transaction_log(reference);

CREATE TABLE IF NOT EXISTS treasury_log (
	id BIGSERIAL PRIMARY KEY,
	kind TEXT NOT NULL,
	delta NUMERIC(18,2) NOT NULL,
	reference TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS admin_log (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT REFERENCES users(id),
	action TEXT NOT NULL,
	detail TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS booms (
	id BIGSERIAL PRIMARY KEY,
	token_id TEXT UNIQUE NOT NULL,
	base_price NUMERIC(18,2) NOT NULL CHECK (base_price >= 0),
	current_social_value NUMERIC(18,6) NOT NULL DEFAULT 0,
	applied_micro_value NUMERIC(18,2) NOT NULL DEFAULT 0,
	social_accumulator NUMERIC(18,6) NOT NULL DEFAULT 0,
	palier_threshold NUMERIC(18,2) NOT NULL DEFAULT 1000000,
	palier_level INTEGER NOT NULL DEFAULT 0,
	buy_count INTEGER NOT NULL DEFAULT 0,
	sell_count INTEGER NOT NULL DEFAULT 0,
	share_count INTEGER NOT NULL DEFAULT 0,
	share_count_24h INTEGER NOT NULL DEFAULT 0,
	interaction_count INTEGER NOT NULL DEFAULT 0,
	unique_holders INTEGER NOT NULL DEFAULT 0,
	active_event TEXT CHECK (active_event IN ('viral','trending','new','milestone')),
	event_expires_at TIMESTAMPTZ,
	owner_id BIGINT REFERENCES users(id),
	max_editions INTEGER NOT NULL DEFAULT 1,
	current_edition INTEGER NOT NULL DEFAULT 0,
	treasury_pool NUMERIC(18,2) NOT NULL DEFAULT 0,
	redistribution_pool NUMERIC(18,2) NOT NULL DEFAULT 0,
	last_interaction_at TIMESTAMPTZ,
	last_share_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS holdings (
	id BIGSERIAL PRIMARY KEY,
	boom_id BIGINT NOT NULL REFERENCES booms(id),
	owner_id BIGINT NOT NULL REFERENCES users(id),
	purchase_price NUMERIC(18,2) NOT NULL,
	fees_paid NUMERIC(18,2) NOT NULL DEFAULT 0,
	is_transferable BOOLEAN NOT NULL DEFAULT TRUE,
	is_sold BOOLEAN NOT NULL DEFAULT FALSE,
	receiver_id BIGINT REFERENCES users(id),
	transferred_at TIMESTAMPTZ,
	deleted_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_holdings_owner ON holdings(owner_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_holdings_boom ON holdings(boom_id);

CREATE TABLE IF NOT EXISTS gifts (
	id BIGSERIAL PRIMARY KEY,
	sender_id BIGINT NOT NULL REFERENCES users(id),
	receiver_id BIGINT NOT NULL REFERENCES users(id),
	holding_id BIGINT NOT NULL REFERENCES holdings(id),
	message TEXT,
	gross_amount NUMERIC(18,2) NOT NULL,
	fee_amount NUMERIC(18,2) NOT NULL,
	net_amount NUMERIC(18,2) NOT NULL,
	transaction_reference TEXT UNIQUE NOT NULL,
	flow TEXT NOT NULL CHECK (flow IN ('new','legacy')),
	status TEXT NOT NULL,
	paid_at TIMESTAMPTZ,
	accepted_at TIMESTAMPTZ,
	delivered_at TIMESTAMPTZ,
	failed_at TIMESTAMPTZ,
	expires_at TIMESTAMPTZ NOT NULL,
	wallet_transaction_ids BIGINT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_gifts_reference ON gifts(transaction_reference);
CREATE INDEX IF NOT EXISTS idx_gifts_status_expiry ON gifts(status, expires_at);

CREATE TABLE IF NOT EXISTS interactions (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	boom_id BIGINT NOT NULL REFERENCES booms(id),
	action_type TEXT NOT NULL,
	metadata JSONB,
	processed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_interactions_dedup ON interactions(user_id, boom_id, action_type, created_at);

CREATE TABLE IF NOT EXISTS payment_transactions (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	kind TEXT NOT NULL CHECK (kind IN ('deposit','payout','bom_withdrawal')),
	provider TEXT NOT NULL,
	reference TEXT UNIQUE NOT NULL,
	amount NUMERIC(18,2) NOT NULL,
	fees NUMERIC(18,2) NOT NULL DEFAULT 0,
	net NUMERIC(18,2) NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending'
	 CHECK (status IN ('pending','completed','failed')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_payment_tx_reference ON payment_transactions(reference);
CREATE INDEX IF NOT EXISTS idx_payment_tx_provider ON payment_transactions(provider, status);
`
