package models

import "time"

// JobStatus is the lifecycle state of a search job. Transitions only advance:
// pending -> running -> completed|failed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether s is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobStage is the coarse pipeline stage reported in job progress.
type JobStage string

const (
	JobStageSearching JobStage = "searching"
	JobStageRefining  JobStage = "refining"
	JobStageSaving    JobStage = "saving"
)

// JobParams is the immutable parameter snapshot taken when a job is created.
type JobParams struct {
	Term          string       `json:"termo"`
	ResultCount   int          `json:"quantidade_resultados"`
	SupplierIDs   []string     `json:"fornecedores,omitempty"` // empty = all active suppliers
	UserID        string       `json:"usuario_id,omitempty"`
	Quantity      int          `json:"quantidade"`
	CostBenefit   *CostBenefit `json:"custo_beneficio,omitempty"`
	Rigor         int          `json:"rigor"` // 0-5 refinement strictness
	Refine        bool         `json:"refinar"`
	Persist       bool         `json:"salvar"`
	MissingItemID string       `json:"faltante_id,omitempty"`
	AdHocURLs     []string     `json:"urls_avulsas,omitempty"`
	WebWeight     float64      `json:"peso_web,omitempty"`
}

// JobProgress is the worker-reported progress snapshot.
type JobProgress struct {
	Stage            JobStage `json:"etapa"`
	SuppliersQueried int      `json:"fornecedores_consultados"`
	ProductsFound    int      `json:"produtos_encontrados"`
	Detail           string   `json:"detalhe,omitempty"`
}

// RankChoice identifies the winning candidate of a refinement pass.
type RankChoice struct {
	Index     int    `json:"indice"`
	Name      string `json:"nome"`
	Rationale string `json:"justificativa,omitempty"`
}

// RankAlternative is a non-winning candidate with its evaluation.
type RankAlternative struct {
	Index      int      `json:"indice"`
	Name       string   `json:"nome"`
	Strengths  []string `json:"pontos_fortes,omitempty"`
	Weaknesses []string `json:"pontos_fracos,omitempty"`
	Score      float64  `json:"pontuacao"`
}

// RankReport is the structured justification produced by the refinement
// capability. On rejection or call failure only Error is populated.
type RankReport struct {
	Choice       *RankChoice       `json:"escolha_principal,omitempty"`
	Alternatives []RankAlternative `json:"alternativas,omitempty"`
	Criteria     []string          `json:"criterios,omitempty"`
	WebWeight    float64           `json:"peso_web,omitempty"`
	Error        string            `json:"erro,omitempty"`
}

// SupplierSaveDetail is the persistence outcome for one supplier group.
type SupplierSaveDetail struct {
	SupplierID   string   `json:"fornecedor_id"`
	Saved        int      `json:"salvos"`
	Errors       int      `json:"erros"`
	ErrorDetails []string `json:"detalhes_erro,omitempty"`
}

// SaveOutcome aggregates persistence results across supplier groups.
type SaveOutcome struct {
	Saved   int                  `json:"salvos"`
	Errors  int                  `json:"erros"`
	Details []SupplierSaveDetail `json:"detalhes"`
}

// JobResult is the terminal success payload of a job.
type JobResult struct {
	Report   *RankReport  `json:"relatorio"`
	Products []Product    `json:"produtos"`
	Quantity int          `json:"quantidade"`
	Save     *SaveOutcome `json:"salvamento,omitempty"`
	Elapsed  int64        `json:"tempo_total_ms"`
}

// Job is one schedulable search request tracked by the job manager. Identity
// fields (ID, Params, CreatedAt) never change after creation.
type Job struct {
	ID          string       `json:"id"`
	Status      JobStatus    `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Params      JobParams    `json:"parametros"`
	Progress    *JobProgress `json:"progresso,omitempty"`
	Result      *JobResult   `json:"resultado,omitempty"`
	Error       string       `json:"erro,omitempty"`
}

// Clone returns a deep-enough copy safe to hand to callers while the manager
// keeps mutating the original.
func (j *Job) Clone() *Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.Progress != nil {
		p := *j.Progress
		c.Progress = &p
	}
	return &c
}
