package store

// Schema is the complete tracker schema.
const Schema = `
-- Retailers that product pages belong to
CREATE TABLE IF NOT EXISTS sources (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE COLLATE NOCASE,
    homepage    TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'active',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

-- Product page URLs visited by the daily run
CREATE TABLE IF NOT EXISTS scrape_targets (
    id                    TEXT PRIMARY KEY,
    url                   TEXT NOT NULL UNIQUE,
    source                TEXT NOT NULL,
    category              TEXT NOT NULL,
    brand                 TEXT NOT NULL DEFAULT '',
    name_selector         TEXT NOT NULL DEFAULT '',
    price_selector        TEXT NOT NULL DEFAULT '',
    image_selector        TEXT NOT NULL DEFAULT '',
    availability_selector TEXT NOT NULL DEFAULT '',
    render                TEXT NOT NULL DEFAULT 'http',
    active                INTEGER NOT NULL DEFAULT 1,
    fail_count            INTEGER NOT NULL DEFAULT 0,
    last_error            TEXT NOT NULL DEFAULT '',
    last_scraped_at       INTEGER,
    created_at            INTEGER NOT NULL,
    updated_at            INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_targets_active ON scrape_targets(active, created_at, id);
CREATE INDEX IF NOT EXISTS idx_targets_source ON scrape_targets(source);

-- One row per tracked product, carrying the latest scraped state
CREATE TABLE IF NOT EXISTS products (
    id              TEXT PRIMARY KEY,
    url             TEXT NOT NULL UNIQUE,
    name            TEXT NOT NULL,
    current_price   REAL NOT NULL,
    currency        TEXT NOT NULL DEFAULT 'USD',
    image           TEXT NOT NULL DEFAULT '',
    category        TEXT NOT NULL,
    brand           TEXT NOT NULL DEFAULT '',
    source          TEXT NOT NULL,
    price_change    REAL NOT NULL DEFAULT 0,
    available       INTEGER NOT NULL DEFAULT 1,
    scrape_day      TEXT NOT NULL,
    last_scraped_at INTEGER,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_day ON products(scrape_day);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_brand ON products(brand);

-- Append-only daily price facts; one row per product per calendar day
CREATE TABLE IF NOT EXISTS price_history (
    id          TEXT PRIMARY KEY,
    product_id  TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
    day         TEXT NOT NULL,
    price       REAL NOT NULL,
    currency    TEXT NOT NULL DEFAULT 'USD',
    available   INTEGER NOT NULL DEFAULT 1,
    recorded_at INTEGER NOT NULL,
    UNIQUE(product_id, day)
);
CREATE INDEX IF NOT EXISTS idx_history_day ON price_history(day);
CREATE INDEX IF NOT EXISTS idx_history_product ON price_history(product_id, day DESC);

-- Fetch attempts (observability)
CREATE TABLE IF NOT EXISTS fetch_log (
    id            TEXT PRIMARY KEY,
    target_id     TEXT NOT NULL REFERENCES scrape_targets(id) ON DELETE CASCADE,
    status        TEXT NOT NULL,
    status_code   INTEGER NOT NULL DEFAULT 0,
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    fetched_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_log_target ON fetch_log(target_id, fetched_at DESC);
`
