package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- TASK TABLE (processing queue)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS task SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS task_type ON task TYPE string;
    DEFINE FIELD IF NOT EXISTS application_id ON task TYPE string;
    DEFINE FIELD IF NOT EXISTS payload ON task TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS status ON task TYPE string DEFAULT 'pending'
        ASSERT $value IN ['pending', 'processing', 'completed', 'failed'];
    DEFINE FIELD IF NOT EXISTS attempts ON task TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS last_error ON task TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS locked_at ON task TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS created_at ON task TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON task TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS task_status_created ON task FIELDS status, created_at;

    -- ==========================================================================
    -- APPLICATION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS application SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS applicant_id ON application TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON application TYPE string DEFAULT 'draft';
    DEFINE FIELD IF NOT EXISTS demo_session_id ON application TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS submitted_at ON application TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS updated_at ON application TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS reasoning_overall_recommendation ON application TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS reasoning_confidence_score ON application TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS reasoning_summary ON application TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS reasoning_phases ON application TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS reasoning_missing_information ON application TYPE option<array<string>>;
    DEFINE FIELD IF NOT EXISTS reasoning_suggested_actions ON application TYPE option<array<string>>;

    DEFINE INDEX IF NOT EXISTS application_status ON application FIELDS status;

    -- ==========================================================================
    -- APPLICATION_FILE TABLE (document metadata; content lives in S3)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS application_file SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS application_id ON application_file TYPE string;
    DEFINE FIELD IF NOT EXISTS file_name ON application_file TYPE string;
    DEFINE FIELD IF NOT EXISTS content_type ON application_file TYPE string DEFAULT 'application/pdf';
    DEFINE FIELD IF NOT EXISTS storage_bucket ON application_file TYPE string;
    DEFINE FIELD IF NOT EXISTS storage_path ON application_file TYPE string;
    DEFINE FIELD IF NOT EXISTS uploaded_at ON application_file TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS file_application ON application_file FIELDS application_id;

    -- ==========================================================================
    -- ASSIGNED_APPLICATION TABLE
    -- ==========================================================================
    -- Unique index on application_id closes the check-then-insert race between
    -- concurrent orchestration tasks: the second insert fails instead of
    -- creating a duplicate assignment.
    DEFINE TABLE IF NOT EXISTS assigned_application SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS application_id ON assigned_application TYPE string;
    DEFINE FIELD IF NOT EXISTS reviewer_id ON assigned_application TYPE string;
    DEFINE FIELD IF NOT EXISTS review_status ON assigned_application TYPE string DEFAULT 'unopened'
        ASSERT $value IN ['unopened', 'in_progress', 'completed'];
    DEFINE FIELD IF NOT EXISTS priority ON assigned_application TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS assigned_by ON assigned_application TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS assigned_at ON assigned_application TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS uniq_assignment_application ON assigned_application FIELDS application_id UNIQUE;
    DEFINE INDEX IF NOT EXISTS assignment_reviewer ON assigned_application FIELDS reviewer_id, review_status;

    -- ==========================================================================
    -- USER TABLE (caseworkers)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS user SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS role ON user TYPE string;
    DEFINE FIELD IF NOT EXISTS is_active ON user TYPE bool DEFAULT true;
    DEFINE FIELD IF NOT EXISTS caseworker_available ON user TYPE bool DEFAULT false;

    DEFINE INDEX IF NOT EXISTS user_role ON user FIELDS role;
`
