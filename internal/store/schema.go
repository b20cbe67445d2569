package store

// Schema contains the complete DDL for the docqa tables.
const Schema = `
-- Documents: one row per uploaded PDF, with ingestion lifecycle status
CREATE TABLE IF NOT EXISTS documents (
    id           TEXT PRIMARY KEY,
    filename     TEXT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'uploading'
                 CHECK (status IN ('uploading','queued','processing','ready','error')),
    error_reason TEXT NOT NULL DEFAULT '',
    size_bytes   INTEGER NOT NULL DEFAULT 0,
    page_count   INTEGER NOT NULL DEFAULT 0,
    chunk_count  INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

-- Pages: extracted text per PDF page, with the extraction method used
CREATE TABLE IF NOT EXISTS pages (
    document_id TEXT NOT NULL,
    page_no     INTEGER NOT NULL,
    text        TEXT NOT NULL DEFAULT '',
    method      TEXT NOT NULL DEFAULT 'text'
                CHECK (method IN ('text','ocr','failed')),
    PRIMARY KEY (document_id, page_no),
    FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);

-- Chunks: overlapping page fragments with their embedding vectors.
-- Chunk ids are zero-padded per document so ascending id equals creation order.
CREATE TABLE IF NOT EXISTS chunks (
    id           TEXT PRIMARY KEY,
    document_id  TEXT NOT NULL,
    page_no      INTEGER NOT NULL,
    chunk_index  INTEGER NOT NULL,
    text         TEXT NOT NULL,
    start_off    INTEGER NOT NULL DEFAULT 0,
    end_off      INTEGER NOT NULL DEFAULT 0,
    overlap_prev INTEGER NOT NULL DEFAULT 0,
    embedding    BLOB,
    norm         REAL NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL,
    FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, chunk_index);
`
