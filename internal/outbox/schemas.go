package outbox

const productivityRecordedSchema = `{
  "type": "object",
  "title": "ProductivityRecorded",
  "properties": {
    "record_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "team_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "hours_worked": {"type": "number"},
    "tasks_completed": {"type": "integer"},
    "units_completed": {"type": "integer"},
    "safety_incidents": {"type": "integer"},
    "recorded_by": {"type": "string"},
    "recorded_at": {"type": "string", "format": "date-time"}
  },
  "required": ["record_id", "tenant_id", "team_id", "date", "hours_worked", "tasks_completed", "units_completed", "safety_incidents", "recorded_by", "recorded_at"],
  "additionalProperties": false
}`

const teamMetricsUpdatedSchema = `{
  "type": "object",
  "title": "TeamMetricsUpdated",
  "properties": {
    "tenant_id": {"type": "string"},
    "team_id": {"type": "string"},
    "week_start": {"type": "string", "format": "date"},
    "avg_productivity": {"type": "number"},
    "avg_quality_score": {"type": "number"},
    "attendance_rate": {"type": "number"},
    "safety_score": {"type": "number"},
    "tasks_completed": {"type": "integer"},
    "updated_at": {"type": "string", "format": "date-time"}
  },
  "required": ["tenant_id", "team_id", "week_start", "avg_productivity", "avg_quality_score", "attendance_rate", "safety_score", "tasks_completed", "updated_at"],
  "additionalProperties": false
}`
