package database

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    uid VARCHAR(64) PRIMARY KEY,
    balance INT NOT NULL DEFAULT 0,
    subscription_status VARCHAR(16) NOT NULL DEFAULT 'none',
    subscription_product_id VARCHAR(128),
    role VARCHAR(16) NOT NULL DEFAULT 'normal',
    email VARCHAR(255),
    name VARCHAR(255),
    total_generated INT NOT NULL DEFAULT 0,
    weekly_generated INT NOT NULL DEFAULT 0,
    week_start_date TIMESTAMP NULL,
    last_token_add TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_updated TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS account_transactions (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    uid VARCHAR(64) NOT NULL,
    event VARCHAR(32) NOT NULL,
    amount INT NOT NULL,
    description TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    KEY idx_transactions_uid (uid)
);

CREATE TABLE IF NOT EXISTS generated_images (
    id CHAR(36) PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    image_url TEXT NOT NULL,
    file_name VARCHAR(255) NOT NULL,
    prompts TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    KEY idx_generated_images_user (user_id)
);

CREATE TABLE IF NOT EXISTS packs (
    id VARCHAR(64) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    prompts TEXT NOT NULL,
    is_active TINYINT(1) NOT NULL DEFAULT 1,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS premium_emails (
    email VARCHAR(255) PRIMARY KEY,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
