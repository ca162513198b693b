package store

// Both dialects accept $N placeholders and RETURNING, so repositories share SQL.
// attendance has no uniqueness on (student_id, date): repeat submissions append.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id               BIGSERIAL PRIMARY KEY,
		name             TEXT NOT NULL DEFAULT '',
		phone            TEXT NOT NULL DEFAULT '',
		email            TEXT NOT NULL UNIQUE,
		password_hash    TEXT NOT NULL,
		institution_type TEXT NOT NULL DEFAULT '',
		school           TEXT NOT NULL DEFAULT '',
		class_name       TEXT NOT NULL DEFAULT '',
		section          TEXT NOT NULL DEFAULT '',
		college          TEXT NOT NULL DEFAULT '',
		year             TEXT NOT NULL DEFAULT '',
		branch           TEXT NOT NULL DEFAULT '',
		role             TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone)`,
	`CREATE TABLE IF NOT EXISTS students (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id),
		roll_number TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_user_roll ON students(user_id, roll_number)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id         BIGSERIAL PRIMARY KEY,
		student_id BIGINT NOT NULL REFERENCES students(id),
		date       TEXT NOT NULL,
		status     TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_student_date ON attendance(student_id, date)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		name             TEXT NOT NULL DEFAULT '',
		phone            TEXT NOT NULL DEFAULT '',
		email            TEXT NOT NULL UNIQUE,
		password_hash    TEXT NOT NULL,
		institution_type TEXT NOT NULL DEFAULT '',
		school           TEXT NOT NULL DEFAULT '',
		class_name       TEXT NOT NULL DEFAULT '',
		section          TEXT NOT NULL DEFAULT '',
		college          TEXT NOT NULL DEFAULT '',
		year             TEXT NOT NULL DEFAULT '',
		branch           TEXT NOT NULL DEFAULT '',
		role             TEXT NOT NULL DEFAULT '',
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone)`,
	`CREATE TABLE IF NOT EXISTS students (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER NOT NULL REFERENCES users(id),
		roll_number TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_user_roll ON students(user_id, roll_number)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL REFERENCES students(id),
		date       TEXT NOT NULL,
		status     TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_student_date ON attendance(student_id, date)`,
}
