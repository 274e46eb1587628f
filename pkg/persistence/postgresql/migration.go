package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id TEXT NOT NULL,
				tenant_id TEXT NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_event VARCHAR(255) NOT NULL,
				conditions JSONB NOT NULL DEFAULT '[]',
				actions JSONB NOT NULL DEFAULT '[]',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				owner VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (tenant_id, id)
			);

			CREATE INDEX idx_workflows_trigger ON workflows(tenant_id, trigger_event, created_at, id) WHERE is_active;

			CREATE TABLE records (
				tenant_id TEXT NOT NULL,
				type VARCHAR(100) NOT NULL,
				id TEXT NOT NULL,
				attributes JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (tenant_id, type, id)
			);
		`,
		2: `
			CREATE TABLE tasks (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				subject TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('open', 'completed')),
				due_at TIMESTAMP WITH TIME ZONE,
				assigned_to VARCHAR(255) NOT NULL DEFAULT '',
				entity_type VARCHAR(100) NOT NULL,
				entity_id TEXT NOT NULL,
				workflow_id TEXT NOT NULL DEFAULT '',
				created_by VARCHAR(255) NOT NULL,
				overdue_notified_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_tasks_entity ON tasks(tenant_id, entity_type, entity_id);
			CREATE INDEX idx_tasks_overdue ON tasks(due_at) WHERE status = 'open' AND overdue_notified_at IS NULL;

			CREATE TABLE notifications (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				workflow_id TEXT NOT NULL DEFAULT '',
				entity_type VARCHAR(100) NOT NULL,
				entity_id TEXT NOT NULL,
				recipient VARCHAR(255) NOT NULL DEFAULT '',
				channel VARCHAR(50) NOT NULL,
				subject TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_notifications_entity ON notifications(tenant_id, entity_type, entity_id);
		`,
		3: `
			CREATE TABLE workflow_runs (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				workflow_id TEXT NOT NULL,
				trigger_event VARCHAR(255) NOT NULL,
				entity_type VARCHAR(100) NOT NULL,
				entity_id TEXT NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('matched', 'skipped', 'failed')),
				error TEXT NOT NULL DEFAULT '',
				actions JSONB NOT NULL DEFAULT '[]',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_runs_workflow ON workflow_runs(tenant_id, workflow_id, started_at DESC);
		`,
	}
}
