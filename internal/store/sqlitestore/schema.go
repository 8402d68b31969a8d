package sqlitestore

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	turn INTEGER NOT NULL DEFAULT 1,
	money INTEGER NOT NULL,
	reputation INTEGER NOT NULL DEFAULT 0,
	creative_capital INTEGER NOT NULL DEFAULT 0,
	focus_slots INTEGER NOT NULL DEFAULT 0,
	used_focus_slots INTEGER NOT NULL DEFAULT 0,
	playlist_tier TEXT NOT NULL,
	press_tier TEXT NOT NULL,
	venue_tier TEXT NOT NULL,
	campaign_length INTEGER NOT NULL,
	campaign_completed INTEGER NOT NULL DEFAULT 0,
	auto_advance INTEGER NOT NULL DEFAULT 0,
	seed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS artists (
	id TEXT PRIMARY KEY,
	game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	genre TEXT NOT NULL DEFAULT '',
	mood INTEGER NOT NULL DEFAULT 50,
	loyalty INTEGER NOT NULL DEFAULT 50,
	popularity INTEGER NOT NULL DEFAULT 0,
	weekly_fee INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	artist_id TEXT NOT NULL,
	release_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	type TEXT NOT NULL,
	stage TEXT NOT NULL,
	start_turn INTEGER NOT NULL,
	stage_started_turn INTEGER NOT NULL,
	producer_tier TEXT NOT NULL,
	time_investment TEXT NOT NULL,
	song_count INTEGER NOT NULL DEFAULT 0,
	songs_created INTEGER NOT NULL DEFAULT 0,
	budget_per_song INTEGER NOT NULL DEFAULT 0,
	total_cost INTEGER NOT NULL DEFAULT 0,
	cost_paid INTEGER NOT NULL DEFAULT 0,
	cities INTEGER NOT NULL DEFAULT 0,
	revenue INTEGER NOT NULL DEFAULT 0,
	streams INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS releases (
	id TEXT PRIMARY KEY,
	game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	artist_id TEXT NOT NULL,
	title TEXT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	release_turn INTEGER NOT NULL,
	marketing_budget INTEGER NOT NULL DEFAULT 0,
	has_lead_single INTEGER NOT NULL DEFAULT 0,
	lead_song_id TEXT NOT NULL DEFAULT '',
	lead_offset_turns INTEGER NOT NULL DEFAULT 0,
	lead_budget INTEGER NOT NULL DEFAULT 0,
	has_story_bonus INTEGER NOT NULL DEFAULT 0,
	base_allocated INTEGER NOT NULL DEFAULT 0,
	lead_allocated INTEGER NOT NULL DEFAULT 0,
	lead_single_streams INTEGER NOT NULL DEFAULT 0,
	streams INTEGER NOT NULL DEFAULT 0,
	revenue INTEGER NOT NULL DEFAULT 0,
	press_pickups INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS songs (
	id TEXT PRIMARY KEY,
	game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	artist_id TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	release_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	track_number INTEGER NOT NULL DEFAULT 0,
	quality INTEGER NOT NULL,
	production_budget INTEGER NOT NULL DEFAULT 0,
	marketing_allocation INTEGER NOT NULL DEFAULT 0,
	initial_streams INTEGER NOT NULL DEFAULT 0,
	total_streams INTEGER NOT NULL DEFAULT 0,
	total_revenue INTEGER NOT NULL DEFAULT 0,
	last_turn_revenue INTEGER NOT NULL DEFAULT 0,
	is_recorded INTEGER NOT NULL DEFAULT 0,
	is_released INTEGER NOT NULL DEFAULT 0,
	created_turn INTEGER NOT NULL DEFAULT 0,
	released_turn INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_songs_release ON songs(game_id, release_id, track_number);
CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(game_id, artist_id);

CREATE TABLE IF NOT EXISTS executives (
	id TEXT PRIMARY KEY,
	game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	mood INTEGER NOT NULL DEFAULT 50,
	loyalty INTEGER NOT NULL DEFAULT 50,
	last_active_turn INTEGER NOT NULL DEFAULT 0
);
`
