package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- DATASET TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS dataset SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON dataset TYPE string;
    DEFINE FIELD IF NOT EXISTS columns ON dataset TYPE array<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS row_count ON dataset TYPE int;
    DEFINE FIELD IF NOT EXISTS path ON dataset TYPE string;
    DEFINE FIELD IF NOT EXISTS created ON dataset TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- ACTIVE_JOB TABLE
    -- ==========================================================================
    -- One record per dataset with a live (non-terminal) job. The record id IS
    -- the dataset id, so CREATE acts as an atomic create-if-absent and a
    -- second concurrent submit fails with "already exists".
    DEFINE TABLE IF NOT EXISTS active_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job_id ON active_job TYPE string;
    DEFINE FIELD IF NOT EXISTS claimed ON active_job TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- ANALYSIS_JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS analysis_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS dataset_id ON analysis_job TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON analysis_job TYPE string;
    DEFINE FIELD IF NOT EXISTS caller ON analysis_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error ON analysis_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON analysis_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed ON analysis_job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS job_dataset ON analysis_job FIELDS dataset_id;
    DEFINE INDEX IF NOT EXISTS job_status ON analysis_job FIELDS status;

    -- ==========================================================================
    -- AGENT_RESULT TABLE
    -- ==========================================================================
    -- Record id is job_id concatenated with the agent kind, so concurrent
    -- writes of distinct stage results within one job land on distinct
    -- records and cannot clobber each other.
    DEFINE TABLE IF NOT EXISTS agent_result SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job_id ON agent_result TYPE string;
    DEFINE FIELD IF NOT EXISTS kind ON agent_result TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON agent_result TYPE string;
    DEFINE FIELD IF NOT EXISTS payload ON agent_result TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS error_kind ON agent_result TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error ON agent_result TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS computed ON agent_result TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS result_job ON agent_result FIELDS job_id;

    -- ==========================================================================
    -- CONVERSATION TABLES
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS conversation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS dataset_id ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS caller ON conversation TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON conversation TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON conversation TYPE datetime DEFAULT time::now();

    DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation_id ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS role ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS citations ON message TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS created ON message TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS message_conversation ON message FIELDS conversation_id;
`
